// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Business is a directory listing registered by a business owner.
// Ownership decides who may manage ads targeting the business.
type Business struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Phone       string     `json:"phone"`
	Website     string     `json:"website"`
	Address     string     `json:"address"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OwnedBy reports whether userID owns the business.
func (b *Business) OwnedBy(userID uuid.UUID) bool {
	return b.OwnerID == userID
}
