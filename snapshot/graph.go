package snapshot

import (
	"context"
	"os"
	"path/filepath"

	"github.com/emicklei/dot"
	"github.com/goccy/go-graphviz"
	"github.com/kwinsch/historify/herrors"
	"github.com/kwinsch/historify/journal"
	"github.com/kwinsch/historify/repository"
)

// ChainGraph builds a directed graph of the changelog chain: one node per
// changelog (labeled with its name and signed/open state), edges following
// the closing-transaction links back to the artifact each changelog closes.
func ChainGraph(repo *repository.Repository) (*dot.Graph, error) {
	entries, err := os.ReadDir(repo.Chgdir)
	if err != nil {
		if os.IsNotExist(err) {
			return dot.NewGraph(dot.Directed), nil
		}
		return nil, herrors.Wrapf(herrors.KindIO, err, "reading %s", repo.Chgdir)
	}

	g := dot.NewGraph(dot.Directed)
	nodes := map[string]dot.Node{}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".csv" {
			names = append(names, e.Name())
		}
	}

	seedLabel := "seed.bin"
	nodes[seedLabel] = g.Node(seedLabel)

	for _, name := range names {
		full := filepath.Join(repo.Chgdir, name)
		signed := "open"
		if _, err := os.Stat(full + ".minisig"); err == nil {
			signed = "signed"
		}
		label := name + " (" + signed + ")"
		node, ok := nodes[name]
		if !ok {
			node = g.Node(label)
			nodes[name] = node
		}

		rows, err := journal.ReadAll(full)
		if err != nil || len(rows) == 0 {
			continue
		}
		closing := rows[0]
		refName := filepath.Base(closing.Path)
		refNode, ok := nodes[refName]
		if !ok {
			refNode = g.Node(refName)
			nodes[refName] = refNode
		}
		g.Edge(refNode, node, "closes")
	}
	return g, nil
}

// RenderGraphPNG renders graph to a PNG file at outPath using go-graphviz's
// in-process layout engine.
func RenderGraphPNG(graph *dot.Graph, outPath string) error {
	gv := graphviz.New()
	defer gv.Close()
	parsed, err := graphviz.ParseBytes([]byte(graph.String()))
	if err != nil {
		return herrors.Wrap(herrors.KindIO, err, "parsing chain graph")
	}
	if err := gv.RenderFilename(context.Background(), parsed, graphviz.PNG, outPath); err != nil {
		return herrors.Wrapf(herrors.KindIO, err, "rendering %s", outPath)
	}
	return nil
}
