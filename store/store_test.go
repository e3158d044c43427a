// SPDX-License-Identifier: Apache-2.0
// Copyright 2021 The Kubernetes Authors

package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YusakuNo1/tinyusdz/store"
)

func TestAllocator_NodeStore_AssignOrdersParentBeforeChild(t *testing.T) {
	alloc, ns := store.NewNodeAllocator()

	root := alloc.Assign(store.NoParent)
	child := alloc.Assign(root)
	grandchild := alloc.Assign(child)

	assert.Equal(t, 0, root)
	assert.Equal(t, 1, child)
	assert.Equal(t, 2, grandchild)
	assert.Less(t, root, child, "a parent's index must be strictly less than its children's (spec §4.2 ordering contract)")
	assert.Less(t, child, grandchild)

	require.Equal(t, []int{root}, ns.TopLevel())
	require.Equal(t, 3, ns.Len())
	assert.Equal(t, []int{child}, ns.At(root).Children)
	assert.Equal(t, []int{grandchild}, ns.At(child).Children)
	assert.Equal(t, store.NoParent, ns.At(root).Parent)
	assert.Equal(t, root, ns.At(child).Parent)
}

func TestNodeStore_At_OutOfRangeReturnsNil(t *testing.T) {
	_, ns := store.NewNodeAllocator()
	assert.Nil(t, ns.At(0))
	assert.Nil(t, ns.At(-1))
}

func TestPrimNode_AddVariant_CreatesNestedMapsOnFirstUse(t *testing.T) {
	alloc, ns := store.NewNodeAllocator()
	root := alloc.Assign(store.NoParent)
	node := ns.At(root)

	vn := node.AddVariant("shadingVariant", "red")
	require.NotNil(t, vn)
	assert.Same(t, vn, node.VariantSets["shadingVariant"]["red"])

	// a second variant under the same set reuses the existing inner map
	vn2 := node.AddVariant("shadingVariant", "blue")
	assert.Len(t, node.VariantSets["shadingVariant"], 2)
	assert.NotSame(t, vn, vn2)
}

func TestAllocator_SpecStore_AssignOrdersParentBeforeChild(t *testing.T) {
	alloc, ss := store.NewSpecAllocator()

	root := alloc.Assign(store.NoParent)
	child := alloc.Assign(root)

	require.Equal(t, []int{root}, ss.TopLevel())
	assert.Equal(t, []int{child}, ss.At(root).Children)
	assert.False(t, ss.Invalidated())

	ss.Invalidate()
	assert.True(t, ss.Invalidated())
	assert.Nil(t, ss.At(root), "a spec store consumed by GetAsLayer must stop serving records (spec §4.8 one-shot contract)")
}
