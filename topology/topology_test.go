package topology

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/timzifer/fleetconf/chain"
	"github.com/timzifer/fleetconf/inventory"
	"github.com/timzifer/fleetconf/overrides"
)

func fleet() inventory.Inventory {
	return inventory.Inventory{
		Validators: map[string]string{"validator-0": "10.0.0.1", "validator-1": "10.0.0.2"},
		Sentries:   map[string]string{"sentry-0": "10.0.0.3"},
	}
}

func TestBuildPeerListScenario(t *testing.T) {
	inv := fleet()
	identities := map[string]string{"validator-0": "id0", "validator-1": "id1"}

	require.Equal(t, "id1@10.0.0.2:26656", BuildPeerList(identities, inv.Validators, "validator-0", "26656"))
	require.Equal(t, "id0@10.0.0.1:26656,id1@10.0.0.2:26656", BuildPeerList(identities, inv.Validators, "", "26656"))
}

func TestBuildPeerListSkipsUnknownIdentities(t *testing.T) {
	pool := map[string]string{"validator-0": "10.0.0.1", "validator-1": "10.0.0.2", "validator-2": ""}
	identities := map[string]string{"validator-1": "id1", "validator-2": "id2"}

	require.Equal(t, "id1@10.0.0.2:36656", BuildPeerList(identities, pool, "", "36656"))
	require.Empty(t, BuildPeerList(identities, pool, "validator-1", "36656"))
}

func TestBuildPeerListProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfNDistinct(rapid.StringMatching(`validator-[0-9]{1,2}`), 0, 8, rapid.ID[string]).Draw(t, "names")
		pool := map[string]string{}
		identities := map[string]string{}
		for i, name := range names {
			if rapid.Bool().Draw(t, "hasAddress") {
				pool[name] = fmt.Sprintf("10.0.0.%d", i+1)
			} else {
				pool[name] = ""
			}
			if rapid.Bool().Draw(t, "hasIdentity") {
				identities[name] = "id-" + name
			}
		}
		exclude := ""
		if len(names) > 0 && rapid.Bool().Draw(t, "exclude") {
			exclude = rapid.SampledFrom(names).Draw(t, "excluded")
		}

		list := BuildPeerList(identities, pool, exclude, "26656")

		var want []string
		for _, name := range names {
			if name != exclude && identities[name] != "" && pool[name] != "" {
				want = append(want, name)
			}
		}
		sort.Strings(want)

		var got []string
		if list != "" {
			for _, endpoint := range strings.Split(list, ",") {
				identity, _, ok := strings.Cut(endpoint, "@")
				require.True(t, ok)
				require.True(t, strings.HasSuffix(endpoint, ":26656"))
				got = append(got, strings.TrimPrefix(identity, "id-"))
			}
		}
		require.Equal(t, want, got)
	})
}

func TestPlan(t *testing.T) {
	identities := map[string]string{"validator-0": "id0", "validator-1": "id1", "sentry-0": "ids"}

	plan := Plan(fleet(), identities, "26656")

	require.Len(t, plan, 3)
	require.Equal(t, "validator-0", plan[0].Node.Name)
	require.Equal(t, "id1@10.0.0.2:26656", plan[0].Peers)
	require.Equal(t, "validator-1", plan[1].Node.Name)
	require.Equal(t, "id0@10.0.0.1:26656", plan[1].Peers)
	require.Equal(t, "sentry-0", plan[2].Node.Name)
	require.Equal(t, "id0@10.0.0.1:26656,id1@10.0.0.2:26656", plan[2].Peers)
}

func TestResolvePort(t *testing.T) {
	port, err := ResolvePort("tcp://0.0.0.0:36656")
	require.NoError(t, err)
	require.Equal(t, "36656", port)

	for _, laddr := range []string{"", "localhost", "tcp://0.0.0.0:", "tcp://0.0.0.0:abc", "tcp://0.0.0.0:70000"} {
		port, err := ResolvePort(laddr)
		require.Error(t, err, laddr)
		require.Equal(t, DefaultPort, port)
	}
}

const nodeConfig = `# config
moniker = "node"

[p2p]
laddr = "tcp://0.0.0.0:26656"
persistent_peers = ""

[rpc]
laddr = "tcp://127.0.0.1:26657"
`

func writeNode(t *testing.T, base, name, content string) string {
	t.Helper()
	path := ConfigPath(base, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigureWritesPeerLists(t *testing.T) {
	base := t.TempDir()
	v0 := writeNode(t, base, "validator-0", nodeConfig)
	writeNode(t, base, "validator-1", nodeConfig)
	s0 := writeNode(t, base, "sentry-0", nodeConfig)

	outcomes, err := Configure(context.Background(), Options{
		BaseDir:       base,
		Inventory:     fleet(),
		Identities:    chain.Static{Identities: map[string]string{"validator-0": "id0", "validator-1": "id1", "sentry-0": "ids"}},
		ListenAddress: "tcp://0.0.0.0:36656",
		Logger:        zerolog.Nop(),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, outcome := range outcomes {
		require.True(t, outcome.OK(), outcome.Node.Name)
	}

	raw, err := os.ReadFile(v0)
	require.NoError(t, err)
	require.Equal(t, strings.Replace(nodeConfig, `persistent_peers = ""`, `persistent_peers = "id1@10.0.0.2:36656"`, 1), string(raw))

	raw, err = os.ReadFile(s0)
	require.NoError(t, err)
	require.Contains(t, string(raw), `persistent_peers = "id0@10.0.0.1:36656,id1@10.0.0.2:36656"`)
	require.Contains(t, string(raw), "[rpc]\nladdr = \"tcp://127.0.0.1:26657\"\n")
}

func TestConfigureMissingConfigIsPerNodeFailure(t *testing.T) {
	base := t.TempDir()
	writeNode(t, base, "validator-0", nodeConfig)
	writeNode(t, base, "sentry-0", "moniker = \"sentry\"\n")

	outcomes, err := Configure(context.Background(), Options{
		BaseDir:    base,
		Inventory:  fleet(),
		Identities: chain.Static{Identities: map[string]string{"validator-0": "id0", "validator-1": "id1"}},
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	require.True(t, outcomes[0].OK())
	require.Equal(t, "id1@10.0.0.2:26656", outcomes[0].Peers)
	require.False(t, outcomes[1].OK())
	require.ErrorIs(t, outcomes[1].Err, os.ErrNotExist)
	require.True(t, outcomes[2].OK())
	require.Equal(t, []overrides.Key{PeersKey}, outcomes[2].Report.Missing)
}

func TestConfigureFailsWithoutValidators(t *testing.T) {
	_, err := Configure(context.Background(), Options{
		BaseDir:    t.TempDir(),
		Inventory:  inventory.Inventory{Sentries: map[string]string{"sentry-0": "10.0.0.3"}},
		Identities: chain.Static{},
	})
	require.ErrorIs(t, err, ErrNoValidators)
}

func TestConfigureFailsWithoutIdentities(t *testing.T) {
	base := t.TempDir()
	path := writeNode(t, base, "validator-0", nodeConfig)

	_, err := Configure(context.Background(), Options{
		BaseDir:    base,
		Inventory:  fleet(),
		Identities: chain.Static{},
	})
	require.ErrorIs(t, err, ErrNoIdentities)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, nodeConfig, string(raw))
}

func TestCollectIdentitiesUsesNodeHomes(t *testing.T) {
	src := chain.Static{Identities: map[string]string{"validator-0": "id0", "sentry-0": ""}}
	got := CollectIdentities(context.Background(), src, "/base", []string{"sentry-0", "validator-0", "validator-1"}, zerolog.Nop())
	require.Equal(t, map[string]string{"validator-0": "id0"}, got)
}
