package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type item struct {
	mu      sync.Mutex
	results map[string]any
}

func newItem() *item {
	return &item{results: make(map[string]any)}
}

func (it *item) set(k string, v any) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.results[k] = v
}

func setStep(key string, val any) Step[item] {
	return func(_ context.Context, it *item) error {
		it.set(key, val)
		return nil
	}
}

func failStep(_ context.Context, _ *item) error {
	return errors.New("mock step failed")
}

func TestPipelineRun(t *testing.T) {
	tests := []struct {
		name    string
		stages  []Stage[item]
		want    map[string]any
		wantErr bool
	}{
		{
			name:   "steps in one stage",
			stages: []Stage[item]{NewStage("s", setStep("x", 1), setStep("y", 2))},
			want:   map[string]any{"x": 1, "y": 2},
		},
		{
			name: "optional failure continues",
			stages: []Stage[item]{
				NewStage("flaky", failStep),
				NewStage("after", setStep("ok", true)),
			},
			want: map[string]any{"ok": true},
		},
		{
			name: "required failure stops",
			stages: []Stage[item]{
				NewStage("gate", failStep).Required(),
				NewStage("after", setStep("ok", true)),
			},
			want:    map[string]any{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			it := newItem()
			err := NewPipeline(tt.stages...).Run(ctx, it)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(it.results) != len(tt.want) {
				t.Fatalf("results = %v, want %v", it.results, tt.want)
			}
			for k, v := range tt.want {
				if it.results[k] != v {
					t.Errorf("results[%s] = %v, want %v", k, it.results[k], v)
				}
			}
		})
	}
}

func TestPipelineProcessKeepsOrder(t *testing.T) {
	p := NewPipeline(NewStage("tag", func(_ context.Context, it *item) error {
		if it.results["n"].(int)%2 == 1 {
			return errors.New("odd")
		}
		return nil
	}).Required())

	in := make(chan *item, 4)
	for i := 0; i < 4; i++ {
		it := newItem()
		it.results["n"] = i
		in <- it
	}
	close(in)

	var order []int
	var rejected int
	for r := range p.Process(context.Background(), in) {
		order = append(order, r.Item.results["n"].(int))
		if r.Err != nil {
			rejected++
		}
	}
	if len(order) != 4 || order[0] != 0 || order[3] != 3 {
		t.Errorf("order = %v", order)
	}
	if rejected != 2 {
		t.Errorf("rejected = %d", rejected)
	}
}
