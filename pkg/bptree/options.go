package bptree

import "github.com/pkg/errors"

// Options represents the configuration options for the B+ tree index.
type Options struct {
	// LeafCapacity is the maximum number of pairs a leaf node holds
	// before it splits.
	LeafCapacity int `json:"leaf_capacity"`

	// BranchCapacity is the maximum number of separator keys a branch
	// node holds before it splits.
	BranchCapacity int `json:"branch_capacity"`
}

// Small default capacities keep every split path easy to exercise.
// Production sizing would derive these from the page capacity instead.
var defaultOptions = Options{
	LeafCapacity:   2,
	BranchCapacity: 2,
}

func (o *Options) validate() error {
	if o.LeafCapacity < 1 {
		return errors.Errorf("leaf capacity must be at least 1, got %d", o.LeafCapacity)
	}
	if o.BranchCapacity < 2 {
		return errors.Errorf("branch capacity must be at least 2, got %d", o.BranchCapacity)
	}
	return nil
}
