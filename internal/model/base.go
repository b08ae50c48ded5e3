package model

import "time"

type BaseModel struct {
	ID        int64     `db:"id" json:"id"`
	CreatedAt Timestamp `db:"created_at" json:"createdAt"`
	UpdatedAt Timestamp `db:"updated_at" json:"updatedAt"`
	DeletedAt NullTime  `db:"deleted_at" json:"deletedAt"`
}

func (b BaseModel) EntityID() int64 { return b.ID }
func (b BaseModel) Deleted() bool   { return b.DeletedAt.Valid }

func (b BaseModel) DeletionTime() time.Time {
	if !b.DeletedAt.Valid {
		return time.Time{}
	}
	return b.DeletedAt.Time
}
