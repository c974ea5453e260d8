package models

// LocationInfo is a lookup record describing a rendezvous point by distance
type LocationInfo struct {
	ID          int64
	Km          int
	Title       string
	Description string
}
