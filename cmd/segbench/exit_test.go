package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wyfcoding/segtree/algorithm/segtree"
	"github.com/wyfcoding/segtree/bench"
)

func TestExitCode(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"ok":               {nil, exitOK},
		"mismatch":         {bench.ErrMismatch.Derive(), exitFailure},
		"invalid workload": {bench.ErrInvalidWorkload.Derive(), exitUsage},
		"out of range":     {fmt.Errorf("trial: %w", segtree.ErrOutOfRange.Derive()), exitUsage},
		"canceled":         {errors.Join(context.Canceled, context.Canceled), exitCanceled},
		"mismatch wins":    {errors.Join(context.Canceled, bench.ErrMismatch.Derive()), exitFailure},
		"plain":            {errors.New("boom"), exitFailure},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestErrorAttrs(t *testing.T) {
	attrs := errorAttrs(bench.ErrMismatch.Derive().WithContext("l", 3))
	assert.Len(t, attrs, 6)
	assert.Contains(t, fmt.Sprint(attrs), "http_status=500")
	assert.Contains(t, fmt.Sprint(attrs), "grpc_code=Internal")

	assert.Len(t, errorAttrs(errors.New("boom")), 1)
}
