package filter

import (
	"context"
)

type nullStage struct{}

var _ Stage = nullStage{}

func newNullStage(stageArgs) (Stage, error) {
	return nullStage{}, nil
}

func (nullStage) String() string {
	return "anull"
}

func (nullStage) Configure(_ context.Context, in AudioFormat) (AudioFormat, error) {
	return in, nil
}

func (nullStage) Process(_ context.Context, in *chunk) ([]*chunk, error) {
	return []*chunk{in}, nil
}

func (nullStage) Flush(context.Context) ([]*chunk, error) {
	return nil, nil
}
