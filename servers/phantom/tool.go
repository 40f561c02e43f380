package phantom

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	toolapi "github.com/mrxlab/go-toolapi"
)

// Server exposes phantom operations as a tool. All dataset lookups are
// restricted to the configured data directory.
type Server struct {
	dataDir string
}

// NewServer creates a phantom tool server serving datasets from dataDir.
func NewServer(dataDir string) Server {
	return Server{dataDir: dataDir}
}

// Tool dispatches on the "op" input: "flatten" collapses a segmented phantom
// into parameter maps, "list" looks up datasets matching a glob pattern.
func (s Server) Tool(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
	op, err := toolapi.Pop[toolapi.Str](input, "op")
	if err != nil {
		return nil, fmt.Errorf("reading op: %w", err)
	}

	switch string(op) {
	case "flatten":
		return s.flatten(input, out)
	case "list":
		return s.list(input)
	}
	return nil, fmt.Errorf("unknown op %q", op)
}

func (s Server) flatten(input toolapi.ValueDict, out *toolapi.Sender) (toolapi.ValueDict, error) {
	p, err := toolapi.Pop[toolapi.SegmentedPhantom](input, "phantom")
	if err != nil {
		return nil, fmt.Errorf("reading phantom: %w", err)
	}

	if err := out.Send(fmt.Sprintf("flattening %d tissues", len(p.Tissues))); err != nil {
		return nil, err
	}
	maps, err := Flatten(p)
	if err != nil {
		return nil, err
	}
	return toolapi.ValueDict{
		"pd":     maps.PD,
		"t1":     maps.T1,
		"t2":     maps.T2,
		"t2dash": maps.T2Dash,
		"adc":    maps.ADC,
		"db0":    maps.DB0,
	}, nil
}

func (s Server) list(input toolapi.ValueDict) (toolapi.ValueDict, error) {
	pattern, err := toolapi.Pop[toolapi.Str](input, "pattern")
	if err != nil {
		return nil, fmt.Errorf("reading pattern: %w", err)
	}
	names, err := s.ListDatasets(string(pattern))
	if err != nil {
		return nil, err
	}

	items := make([]toolapi.Value, len(names))
	for i, name := range names {
		items[i] = toolapi.Str(name)
	}
	list, err := toolapi.NewTypedList(toolapi.KindStr, items)
	if err != nil {
		return nil, err
	}
	return toolapi.ValueDict{"datasets": list}, nil
}

// ListDatasets returns the dataset files under the data directory whose
// slash-separated relative paths match the glob pattern, sorted.
func (s Server) ListDatasets(pattern string) ([]string, error) {
	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var names []string
	err = filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dataDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if matcher.Match(rel) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
