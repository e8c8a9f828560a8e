// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categories

import (
	"github.com/google/uuid"

	"bizdir/internal/models"
)

// BuildForest arranges a flat list into trees. Sibling order follows the
// input order, which the store sorts by (sort_order, name). A category whose
// parent is absent from the list is promoted to a root so it stays visible,
// and so is the first member reached of any stored cycle.
func BuildForest(flat []models.Category) []models.Category {
	present := make(map[uuid.UUID]bool, len(flat))
	for _, c := range flat {
		present[c.ID] = true
	}

	byParent := make(map[uuid.UUID][]models.Category)
	var roots []models.Category
	for _, c := range flat {
		if c.ParentID == nil || !present[*c.ParentID] {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	visited := make(map[uuid.UUID]bool, len(flat))
	forest := attach(roots, byParent, visited, 0)
	for _, c := range flat {
		if !visited[c.ID] {
			forest = append(forest, attach([]models.Category{c}, byParent, visited, 0)...)
		}
	}
	if forest == nil {
		forest = []models.Category{}
	}
	return forest
}

// attach recursively fills Children and Depth. visited stops a corrupt
// stored cycle from recursing forever.
func attach(nodes []models.Category, byParent map[uuid.UUID][]models.Category, visited map[uuid.UUID]bool, depth int) []models.Category {
	var result []models.Category
	for _, c := range nodes {
		if visited[c.ID] {
			continue
		}
		visited[c.ID] = true
		c.Depth = depth
		c.Children = attach(byParent[c.ID], byParent, visited, depth+1)
		result = append(result, c)
	}
	return result
}

// Flatten walks a forest depth-first, returning nodes in display order
// with Depth set. Useful for indented selects and exports.
func Flatten(forest []models.Category) []models.Category {
	var result []models.Category
	flattenInto(forest, &result)
	return result
}

func flattenInto(cats []models.Category, result *[]models.Category) {
	for _, c := range cats {
		children := c.Children
		c.Children = nil
		*result = append(*result, c)
		if len(children) > 0 {
			flattenInto(children, result)
		}
	}
}
