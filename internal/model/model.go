package model

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Lot is a physical parking facility. Deactivating hides it from
// availability without touching history.
type Lot struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Slot is an individually bookable space. Number is unique within the
// owning lot.
type Slot struct {
	ID        int64     `json:"id"`
	LotID     int64     `json:"lotId"`
	Number    int       `json:"slotNumber"`
	Type      string    `json:"type"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReservationStatus is derived from the wall clock on every read; only
// the cancelled flag is ever persisted.
type ReservationStatus string

const (
	StatusUpcoming  ReservationStatus = "upcoming"
	StatusActive    ReservationStatus = "active"
	StatusPast      ReservationStatus = "past"
	StatusCancelled ReservationStatus = "cancelled"
)

// Reservation claims a slot for the half-open UTC interval
// [StartTime, EndTime).
type Reservation struct {
	ID        int64     `json:"id"`
	SlotID    int64     `json:"slotId"`
	UserID    string    `json:"userId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Cancelled bool      `json:"cancelled"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *Reservation) Status(now time.Time) ReservationStatus {
	switch {
	case r.Cancelled:
		return StatusCancelled
	case !now.Before(r.EndTime):
		return StatusPast
	case now.Before(r.StartTime):
		return StatusUpcoming
	default:
		return StatusActive
	}
}

// ReservationDetail carries the joined display fields the lists need.
type ReservationDetail struct {
	Reservation
	SlotNumber int               `json:"slotNumber"`
	LotName    string            `json:"lotName"`
	StatusNow  ReservationStatus `json:"status"`
}

// OccupancyEntry is one row of the current-occupancy projection.
type OccupancyEntry struct {
	ReservationID int64     `json:"reservationId"`
	SlotNumber    int       `json:"slotNumber"`
	LotName       string    `json:"lotName"`
	UserName      string    `json:"userName"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
}
