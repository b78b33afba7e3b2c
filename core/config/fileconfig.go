package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var ErrInvalidConfigFormat = errors.New("failed to decode")

// GetFileConfig fills cfg from the json file at configPath.
// A missing or empty file is not an error and leaves cfg untouched.
func GetFileConfig(configPath string, cfg interface{}) error {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	if err = json.Unmarshal(data, cfg); err != nil {
		return errors.Join(ErrInvalidConfigFormat, err)
	}
	return nil
}

// WriteJsonConfig overwrites in the file only the params passed in cfg,
// keys already stored there stay untouched.
// `json:",omitempty"` is required on every field in cfg.
func WriteJsonConfig(configPath string, cfg interface{}) error {
	stored := make(map[string]interface{})
	if err := GetFileConfig(configPath, &stored); err != nil {
		return err
	}

	updated, err := toMapInterface(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal new config: %w", err)
	}
	for key, val := range stored {
		if _, ok := updated[key]; !ok {
			updated[key] = val
		}
	}

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("failed to encode the updated config: %w", err)
	}
	if err = os.WriteFile(configPath, data, 0640); err != nil {
		return fmt.Errorf("failed to save data to the config file: %w", err)
	}
	return nil
}

func toMapInterface(cfg interface{}) (map[string]interface{}, error) {
	var m map[string]interface{}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(data, &m)
	return m, err
}
