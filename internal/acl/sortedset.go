package acl

import (
	"encoding/json"
	"slices"
)

// SortedSet 有序去重集合，遍历顺序由 cmp 决定而非插入顺序
type SortedSet[T any] struct {
	items []T
	cmp   func(a, b T) int
}

func NewSortedSet[T any](cmp func(a, b T) int) *SortedSet[T] {
	return &SortedSet[T]{cmp: cmp}
}

// Add 插入元素，已存在时返回 false
func (s *SortedSet[T]) Add(item T) bool {
	i, found := slices.BinarySearchFunc(s.items, item, s.cmp)
	if found {
		return false
	}
	s.items = slices.Insert(s.items, i, item)
	return true
}

func (s *SortedSet[T]) Contains(item T) bool {
	_, found := slices.BinarySearchFunc(s.items, item, s.cmp)
	return found
}

func (s *SortedSet[T]) Len() int { return len(s.items) }

func (s *SortedSet[T]) Clear() { s.items = nil }

// Items 返回有序副本
func (s *SortedSet[T]) Items() []T {
	return slices.Clone(s.items)
}

func (s *SortedSet[T]) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}
