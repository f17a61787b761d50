package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UpdateDeviceIDs rewrites the device IDs in an existing config file,
// leaving everything else untouched. The file is edited through the YAML
// node tree so comments and ordering survive.
func UpdateDeviceIDs(path string, vendorID, productID uint16) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return fmt.Errorf("unexpected config structure")
	}

	doc := root.Content[0]
	device := mappingValue(doc, "device")
	if device == nil {
		device = &yaml.Node{Kind: yaml.MappingNode}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "device"},
			device,
		)
	}
	setHexValue(device, "vendor_id", vendorID)
	setHexValue(device, "product_id", productID)

	out, err := yaml.Marshal(&root)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	return os.WriteFile(path, out, 0o644)
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setHexValue(m *yaml.Node, key string, v uint16) {
	val := fmt.Sprintf("0x%04X", v)
	if node := mappingValue(m, key); node != nil {
		node.Kind = yaml.ScalarNode
		node.Style = 0
		node.Tag = "!!int"
		node.Value = val
		return
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: val},
	)
}

// CreateDefaultConfig writes a starter config for the given device.
func CreateDefaultConfig(path string, vendorID, productID uint16) error {
	body := fmt.Sprintf(`# Controller input mapping configuration
device:
  vendor_id: 0x%04X
  product_id: 0x%04X

output:
  command: "%s"

profiles:
  - name: default
    buttons:
      - button: a
        press:
          keys: [enter]
      - button: b
        press:
          keys: [escape]
    sticks:
      left: arrows
      right: scroll
    touch:
      tap:
        keys: [enter]
`, vendorID, productID, defaultShell())
	return os.WriteFile(path, []byte(body), 0o644)
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}
