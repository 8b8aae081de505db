package models

// Client owns vehicles and is denormalized onto sessions at entry.
type Client struct {
	ID   int64
	Name string
}

// Vehicle is a registered vehicle identified by its plate.
type Vehicle struct {
	ID         int64
	Plate      string
	Model      string
	Color      string
	Make       string
	Year       *int
	ClientID   *int64
	ClientName string
}
