// Package topology derives persistent peer lists for validator and sentry
// nodes.
//
// Validators peer with every other validator; sentries peer with every
// validator. Nodes whose identity is unknown never appear in a peer list.
package topology

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/timzifer/fleetconf/inventory"
)

// DefaultPort is used when the listen address carries no usable port.
const DefaultPort = "26656"

// ResolvePort takes the port from the last ":" separated segment of a listen
// address such as "tcp://0.0.0.0:26656". When no valid port is found it
// returns DefaultPort together with a warning describing why.
func ResolvePort(laddr string) (string, error) {
	idx := strings.LastIndex(laddr, ":")
	if idx < 0 {
		return DefaultPort, fmt.Errorf("listen address %q has no port, using %s", laddr, DefaultPort)
	}
	port := laddr[idx+1:]
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return DefaultPort, fmt.Errorf("listen address %q has invalid port %q, using %s", laddr, port, DefaultPort)
	}
	return port, nil
}

// Endpoint formats a peer endpoint as identity@address:port.
func Endpoint(identity, address, port string) string {
	return identity + "@" + address + ":" + port
}

// BuildPeerList joins the endpoints of every pool member except exclude, in
// lexical name order. Members without an identity or address are skipped.
func BuildPeerList(identities, pool map[string]string, exclude, port string) string {
	names := make([]string, 0, len(pool))
	for name := range pool {
		names = append(names, name)
	}
	sort.Strings(names)

	peers := make([]string, 0, len(names))
	for _, name := range names {
		if name == exclude {
			continue
		}
		identity, address := identities[name], pool[name]
		if identity == "" || address == "" {
			continue
		}
		peers = append(peers, Endpoint(identity, address, port))
	}
	return strings.Join(peers, ",")
}

// Assignment is the peer list computed for one node.
type Assignment struct {
	Node  inventory.Node
	Peers string
}

// Plan computes the peer list of every validator and sentry. Validators come
// first, each group in lexical order.
func Plan(inv inventory.Inventory, identities map[string]string, port string) []Assignment {
	nodes := inv.Nodes()
	plan := make([]Assignment, 0, len(nodes))
	for _, node := range nodes {
		exclude := ""
		if node.Role == inventory.RoleValidator {
			exclude = node.Name
		}
		plan = append(plan, Assignment{
			Node:  node,
			Peers: BuildPeerList(identities, inv.Validators, exclude, port),
		})
	}
	return plan
}
