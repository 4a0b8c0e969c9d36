package tomlpatch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/timzifer/fleetconf/overrides"
)

const sampleConfig = `# This is a TOML config file.
proxy_app = "tcp://127.0.0.1:26658"
moniker = "node"

[rpc]
laddr = "tcp://127.0.0.1:26657"
cors_allowed_origins = []

[p2p]
laddr = "tcp://0.0.0.0:26656"
# Comma separated list of nodes to keep persistent connections to
persistent_peers = "old"
max_num_inbound_peers = 40
`

func TestPatchScopedKeyOnlyTouchesItsSection(t *testing.T) {
	content := "[p2p]\npersistent_peers = \"old\"\n[rpc]\npersistent_peers = \"keep\"\nladdr = \"tcp://127.0.0.1:26657\"\n"
	set := overrides.Set{"p2p.persistent_peers": overrides.String("id0@10.0.0.1:26656")}

	out, report := Patch([]byte(content), set)

	require.Equal(t, "[p2p]\npersistent_peers = \"id0@10.0.0.1:26656\"\n[rpc]\npersistent_peers = \"keep\"\nladdr = \"tcp://127.0.0.1:26657\"\n", string(out))
	require.Equal(t, []overrides.Key{"p2p.persistent_peers"}, report.Applied)
	require.Empty(t, report.Missing)
}

func TestPatchUnscopedKeyKeepsSpacingAndNewline(t *testing.T) {
	content := "moniker    =   \"node\"   # trailing\r\nother = 1\r\n"
	out, report := Patch([]byte(content), overrides.Set{"moniker": overrides.String("validator-0")})

	require.Equal(t, "moniker    =   \"validator-0\"\r\nother = 1\r\n", string(out))
	require.Equal(t, []overrides.Key{"moniker"}, report.Changed)
}

func TestPatchUnscopedUsesFirstColumnZeroAssignment(t *testing.T) {
	content := "  enable = false\nenable = false\nenable = false\n"
	out, _ := Patch([]byte(content), overrides.Set{"enable": overrides.Bool(true)})
	require.Equal(t, "  enable = false\nenable = true\nenable = false\n", string(out))
}

func TestPatchUnscopedMatchesAssignmentsInsideSections(t *testing.T) {
	content := "moniker = \"node\"\n[api]\nenable = false\n"
	out, report := Patch([]byte(content), overrides.Set{"enable": overrides.Bool(true)})
	require.Equal(t, "moniker = \"node\"\n[api]\nenable = true\n", string(out))
	require.Equal(t, []overrides.Key{"enable"}, report.Changed)
	require.Empty(t, report.Missing)

	content = "moniker = \"node\"\n[consensus]\ntimeout_commit = \"5s\"\n"
	out, report = Patch([]byte(content), overrides.Set{"timeout_commit": overrides.String("1s")})
	require.Equal(t, "moniker = \"node\"\n[consensus]\ntimeout_commit = \"1s\"\n", string(out))
	require.Empty(t, report.Missing)
}

func TestPatchLaterKeyWinsSharedLine(t *testing.T) {
	content := "[p2p]\nenable = false\n"
	set := overrides.Set{
		"enable":     overrides.Bool(false),
		"p2p.enable": overrides.Bool(true),
	}

	out, report := Patch([]byte(content), set)
	require.Equal(t, "[p2p]\nenable = true\n", string(out))
	require.Equal(t, []overrides.Key{"enable", "p2p.enable"}, report.Applied)
	require.Equal(t, []overrides.Key{"p2p.enable"}, report.Changed)

	again, second := Patch(out, set)
	require.Equal(t, string(out), string(again))
	require.Empty(t, second.Changed)
}

func TestPatchScopedUsesFirstAssignmentInBlock(t *testing.T) {
	content := "[api]\nenable = false\nenable = false\n[grpc]\nenable = false\n"
	out, _ := Patch([]byte(content), overrides.Set{"api.enable": overrides.Bool(true)})
	require.Equal(t, "[api]\nenable = true\nenable = false\n[grpc]\nenable = false\n", string(out))
}

func TestPatchSectionHeaderMustMatchExactly(t *testing.T) {
	content := "[api.extra]\nenable = false\n[api]\nenable = false\n"
	out, _ := Patch([]byte(content), overrides.Set{"api.enable": overrides.Bool(true)})
	require.Equal(t, "[api.extra]\nenable = false\n[api]\nenable = true\n", string(out))
}

func TestPatchNestedSectionKey(t *testing.T) {
	content := "[state-sync]\nsnapshot-interval = 0\n[wasm.cache]\nsize = 100\n"
	out, report := Patch([]byte(content), overrides.Set{"wasm.cache.size": overrides.Int(512)})
	require.Equal(t, "[state-sync]\nsnapshot-interval = 0\n[wasm.cache]\nsize = 512\n", string(out))
	require.Equal(t, []overrides.Key{"wasm.cache.size"}, report.Applied)
}

func TestPatchSerializesValueKinds(t *testing.T) {
	content := "a = 0\nb = 0\nc = 0\nd = 0\n"
	set := overrides.Set{
		"a": overrides.Bool(false),
		"b": overrides.Int(1000),
		"c": overrides.Float(0.025),
		"d": overrides.String("0.025inj"),
	}
	out, _ := Patch([]byte(content), set)
	require.Equal(t, "a = false\nb = 1000\nc = 0.025\nd = \"0.025inj\"\n", string(out))
}

func TestPatchMissingKeysAreReportedAndSkipped(t *testing.T) {
	set := overrides.Set{
		"statesync.enable": overrides.Bool(true),
		"p2p.seeds":        overrides.String(""),
		"moniker":          overrides.String("node"),
	}
	out, report := Patch([]byte(sampleConfig), set)

	require.Equal(t, sampleConfig, string(out))
	require.Equal(t, []overrides.Key{"moniker"}, report.Applied)
	require.Empty(t, report.Changed)
	require.Equal(t, []overrides.Key{"p2p.seeds", "statesync.enable"}, report.Missing)
	require.Empty(t, report.Inserted)
}

func TestPatchInsertMissing(t *testing.T) {
	content := "moniker = \"node\"\n\n[p2p]\nladdr = \"tcp://0.0.0.0:26656\"\n\n[rpc]\nladdr = \"x\""
	set := overrides.Set{
		"db_backend":       overrides.String("goleveldb"),
		"p2p.seeds":        overrides.String(""),
		"statesync.enable": overrides.Bool(false),
	}

	out, report := Patch([]byte(content), set, WithInsertMissing())

	want := "moniker = \"node\"\ndb_backend = \"goleveldb\"\n\n[p2p]\nladdr = \"tcp://0.0.0.0:26656\"\nseeds = \"\"\n\n[rpc]\nladdr = \"x\"\n\n[statesync]\nenable = false\n"
	require.Equal(t, want, string(out))
	require.Equal(t, report.Missing, report.Inserted)

	again, second := Patch(out, set, WithInsertMissing())
	require.Equal(t, string(out), string(again))
	require.Empty(t, second.Missing)
}

func TestPatchEmptySetReturnsInput(t *testing.T) {
	out, report := Patch([]byte(sampleConfig), nil)
	require.Equal(t, sampleConfig, string(out))
	require.Empty(t, report.Applied)
}

func TestPatchFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o640))

	report, err := PatchFile(path, overrides.Set{"p2p.persistent_peers": overrides.String("a@b:1")})
	require.NoError(t, err)
	require.Equal(t, []overrides.Key{"p2p.persistent_peers"}, report.Changed)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, strings.Replace(sampleConfig, `persistent_peers = "old"`, `persistent_peers = "a@b:1"`, 1), string(raw))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), info.Mode().Perm())
}

func TestPatchFileMissing(t *testing.T) {
	_, err := PatchFile(filepath.Join(t.TempDir(), "absent.toml"), overrides.Set{"a": overrides.Int(1)})
	require.ErrorIs(t, err, os.ErrNotExist)
}

var (
	sections = []string{"", "p2p", "rpc", "api", "p2p.extra"}
	params   = []string{"enable", "laddr", "persistent_peers", "max"}
)

func genConfig(t *rapid.T) string {
	var b strings.Builder
	for i, section := range sections {
		if section != "" {
			fmt.Fprintf(&b, "[%s]\n", section)
		}
		lines := rapid.IntRange(0, 6).Draw(t, fmt.Sprintf("lines%d", i))
		for j := 0; j < lines; j++ {
			switch rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("kind%d_%d", i, j)) {
			case 0:
				b.WriteString("\n")
			case 1:
				b.WriteString("# " + rapid.StringMatching(`[a-z =]{0,12}`).Draw(t, "comment") + "\n")
			default:
				param := rapid.SampledFrom(params).Draw(t, "param")
				value := rapid.StringMatching(`[a-z0-9"]{0,8}`).Draw(t, "value")
				pad := rapid.SampledFrom([]string{"=", " = ", "  =\t"}).Draw(t, "pad")
				b.WriteString(param + pad + value + "\n")
			}
		}
	}
	return b.String()
}

func genSet(t *rapid.T) overrides.Set {
	set := overrides.Set{}
	n := rapid.IntRange(0, 6).Draw(t, "overrides")
	for i := 0; i < n; i++ {
		section := rapid.SampledFrom(sections).Draw(t, "section")
		key := rapid.SampledFrom(params).Draw(t, "key")
		if section != "" {
			key = section + "." + key
		}
		var value overrides.Value
		switch rapid.IntRange(0, 2).Draw(t, "valueKind") {
		case 0:
			value = overrides.Bool(rapid.Bool().Draw(t, "bool"))
		case 1:
			value = overrides.Int(rapid.Int64().Draw(t, "int"))
		default:
			value = overrides.String(rapid.String().Draw(t, "string"))
		}
		set[overrides.Key(key)] = value
	}
	return set
}

func TestPatchIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		content := genConfig(t)
		set := genSet(t)
		once, _ := Patch([]byte(content), set)
		twice, report := Patch(once, set)
		require.Equal(t, string(once), string(twice))
		require.Empty(t, report.Changed)
	})
}

func TestPatchPreservesUntouchedLines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		content := genConfig(t)
		set := genSet(t)
		out, report := Patch([]byte(content), set)

		before := strings.Split(content, "\n")
		after := strings.Split(string(out), "\n")
		require.Len(t, after, len(before))

		targeted := make(map[string]bool)
		for _, key := range report.Changed {
			_, param := key.Split()
			targeted[param] = true
		}
		changed := 0
		for i := range before {
			if before[i] == after[i] {
				continue
			}
			changed++
			name := strings.TrimSpace(strings.SplitN(before[i], "=", 2)[0])
			require.True(t, targeted[name], "line %d changed without override: %q -> %q", i, before[i], after[i])
		}
		require.Equal(t, len(report.Changed), changed)
	})
}
