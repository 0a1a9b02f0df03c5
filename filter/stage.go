package filter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xaionaro-go/avrecode/types"
)

// Stage is one step of a Graph.
type Stage interface {
	fmt.Stringer

	// Configure receives the format of the previous stage and returns the
	// format this stage produces.
	Configure(ctx context.Context, in AudioFormat) (AudioFormat, error)
	Process(ctx context.Context, in *chunk) ([]*chunk, error)

	// Flush returns whatever the stage still holds.
	Flush(ctx context.Context) ([]*chunk, error)
}

type stageFactory func(args stageArgs) (Stage, error)

var stageFactories = map[string]stageFactory{
	"anull":        newNullStage,
	"volume":       newVolumeStage,
	"aformat":      newFormatStage,
	"aresample":    newResampleStage,
	"asetnsamples": newSetNSamplesStage,
}

// StageNames returns the names usable in a filter description.
func StageNames() []string {
	return []string{"anull", "volume", "aformat", "aresample", "asetnsamples"}
}

// stageArgs are the options of one stage: "name=a:k=v" gives the
// positional value "a" and the key "k".
type stageArgs struct {
	positional []string
	named      map[string]string
}

func (a stageArgs) get(key string, position int) (string, bool) {
	if v, ok := a.named[key]; ok {
		return v, true
	}
	if position >= 0 && position < len(a.positional) {
		return a.positional[position], true
	}
	return "", false
}

func (a stageArgs) getInt(key string, position int) (int, bool, error) {
	s, ok := a.get(key, position)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("%w: '%s' is not an integer: %v", types.ErrInvalidData, key, err)
	}
	return v, true, nil
}

func parseStageArgs(s string) stageArgs {
	args := stageArgs{named: map[string]string{}}
	if s == "" {
		return args
	}
	for _, part := range strings.Split(s, ":") {
		k, v, found := strings.Cut(part, "=")
		if !found {
			args.positional = append(args.positional, part)
			continue
		}
		args.named[k] = v
	}
	return args
}

// ParseDescription parses a comma separated chain such as
// "volume=0.5,aresample=44100". An empty description is "anull".
func ParseDescription(description string) ([]Stage, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		description = "anull"
	}
	var stages []Stage
	for _, item := range strings.Split(description, ",") {
		item = strings.TrimSpace(item)
		name, rawArgs, _ := strings.Cut(item, "=")
		factory, ok := stageFactories[name]
		if !ok {
			return nil, types.ErrUnsupported{Property: "filter", Value: name}
		}
		stage, err := factory(parseStageArgs(rawArgs))
		if err != nil {
			return nil, fmt.Errorf("unable to initialize '%s': %w", item, err)
		}
		stages = append(stages, stage)
	}
	return stages, nil
}
