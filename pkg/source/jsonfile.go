package source

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/arthur-debert/harnesssync/pkg/types"
)

// readObject reads a JSON object from path. A missing file is not an error
// and yields a nil map with exists false.
func readObject(fsys types.FS, path string) (obj map[string]json.RawMessage, exists bool, err error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, true, err
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, true, fmt.Errorf("invalid JSON object: %w", err)
	}
	return obj, true, nil
}

// decodeServers turns a raw mcpServers object into definitions, dropping
// entries that are not objects. It returns nil for anything but an object.
func decodeServers(raw json.RawMessage) map[string]types.ServerConfig {
	if len(raw) == 0 {
		return nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	servers := make(map[string]types.ServerConfig, len(entries))
	for name, entry := range entries {
		var cfg types.ServerConfig
		if err := json.Unmarshal(entry, &cfg); err != nil || cfg == nil {
			continue
		}
		servers[name] = cfg
	}
	return servers
}

// readObjectAny reads a JSON object into generic values.
func readObjectAny(fsys types.FS, path string) (map[string]any, bool, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, true, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, true, fmt.Errorf("invalid JSON object: %w", err)
	}
	return obj, true, nil
}
