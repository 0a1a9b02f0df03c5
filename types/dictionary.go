package types

import (
	"fmt"
	"strings"
)

type DictionaryItem struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// DictionaryItems is an ordered list of key/value options or metadata.
type DictionaryItems []DictionaryItem

func (items DictionaryItems) Get(key string) (string, bool) {
	for _, item := range items {
		if item.Key == key {
			return item.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing key or appends a new item.
func (items *DictionaryItems) Set(key, value string) {
	for idx := range *items {
		if (*items)[idx].Key == key {
			(*items)[idx].Value = value
			return
		}
	}
	*items = append(*items, DictionaryItem{Key: key, Value: value})
}

func (items DictionaryItems) Clone() DictionaryItems {
	if items == nil {
		return nil
	}
	return append(DictionaryItems{}, items...)
}

func (items DictionaryItems) String() string {
	var parts []string
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s=%s", item.Key, item.Value))
	}
	return strings.Join(parts, ":")
}
