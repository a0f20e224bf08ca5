package mmap

import (
	"github.com/sarchlab/vmstore/mem/vm"
	"go.uber.org/zap"
)

// A Builder can build mmap managers.
type Builder struct {
	pageTable vm.PageTable
	logger    *zap.Logger
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithPageTable sets the page table that holds the mapped pages.
func (b Builder) WithPageTable(pageTable vm.PageTable) Builder {
	b.pageTable = pageTable
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *zap.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates the manager. If the page table accepts page operations, the
// manager registers itself for file-backed pages.
func (b Builder) Build() *Manager {
	if b.pageTable == nil {
		panic("mmap manager requires a page table")
	}

	m := &Manager{
		pageTable: b.pageTable,
		pageSize:  1 << b.pageTable.Log2PageSize(),
		logger:    b.logger,
	}

	if m.logger == nil {
		m.logger = zap.NewNop()
	}

	if registry, ok := b.pageTable.(opsRegistry); ok {
		registry.RegisterOps(m)
	}

	return m
}

type opsRegistry interface {
	RegisterOps(ops vm.PageOps)
}
