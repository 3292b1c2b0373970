package refset

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// OpenCV writes a non-standard "%YAML:1.0" directive which yaml.v3 rejects,
// so it is stripped on read and added on write.
const yamlDirective = "%YAML:1.0"

const matrixTag = "!!opencv-matrix"

type matrixYAML struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	DT   string    `yaml:"dt"`
	Data []float64 `yaml:"data"`
}

func encodeYAML(key string, m Matrix) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	data := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range m.Data {
		data.Content = append(data.Content, scalar(formatValue(v, m.Type)))
	}

	body := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  matrixTag,
		Content: []*yaml.Node{
			scalar("rows"), intScalar(m.Rows),
			scalar("cols"), intScalar(m.Cols),
			scalar("dt"), scalar(m.Type),
			scalar("data"), data,
		},
	}
	doc := &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Content: []*yaml.Node{scalar(key), body}}},
	}

	var buf bytes.Buffer
	buf.WriteString(yamlDirective + "\n---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(3)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeYAML(data []byte, key string) (Matrix, error) {
	if bytes.HasPrefix(data, []byte(yamlDirective)) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		} else {
			data = nil
		}
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return Matrix{}, fmt.Errorf("%w: %s", ErrMissingKey, strconv.Quote(key))
	}

	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value != key {
			continue
		}
		node := root.Content[i+1]
		if node.Kind != yaml.MappingNode {
			return Matrix{}, fmt.Errorf("%w: node %s is not a matrix", ErrMalformed, key)
		}
		node.Tag = "!!map"

		var my matrixYAML
		if err := node.Decode(&my); err != nil {
			return Matrix{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		m := Matrix{Rows: my.Rows, Cols: my.Cols, Type: my.DT, Data: my.Data}
		if m.Data == nil {
			m.Data = []float64{}
		}
		if err := m.validate(); err != nil {
			return Matrix{}, err
		}
		return m, nil
	}
	return Matrix{}, fmt.Errorf("%w: %s", ErrMissingKey, strconv.Quote(key))
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func intScalar(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}
