package database

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

// BinaryUUID adapts uuid.UUID to MySQL BINARY(16) columns.
type BinaryUUID uuid.UUID

// Value implements driver.Valuer.
func (b BinaryUUID) Value() (driver.Value, error) {
	return uuid.UUID(b).MarshalBinary()
}

// Scan implements sql.Scanner.
func (b *BinaryUUID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*b = BinaryUUID(uuid.Nil)
		return nil
	case []byte:
		id, err := uuid.FromBytes(v)
		if err != nil {
			return fmt.Errorf("invalid binary uuid: %w", err)
		}
		*b = BinaryUUID(id)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into BinaryUUID", src)
	}
}

// NullBinaryUUID adapts *uuid.UUID to nullable MySQL BINARY(16) columns.
type NullBinaryUUID struct {
	UUID  uuid.UUID
	Valid bool
}

// NewNullBinaryUUID wraps an optional id.
func NewNullBinaryUUID(id *uuid.UUID) NullBinaryUUID {
	if id == nil {
		return NullBinaryUUID{}
	}
	return NullBinaryUUID{UUID: *id, Valid: true}
}

// Ptr returns the id or nil.
func (n NullBinaryUUID) Ptr() *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

// Value implements driver.Valuer.
func (n NullBinaryUUID) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.UUID.MarshalBinary()
}

// Scan implements sql.Scanner.
func (n *NullBinaryUUID) Scan(src any) error {
	if src == nil {
		*n = NullBinaryUUID{}
		return nil
	}
	var b BinaryUUID
	if err := b.Scan(src); err != nil {
		return err
	}
	*n = NullBinaryUUID{UUID: uuid.UUID(b), Valid: true}
	return nil
}
