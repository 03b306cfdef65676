package model

import (
    "strings"
    "time"
)

// TimestampPrecision is the resolution of every stored CreatedAt.  BSON dates
// keep milliseconds, so all stores truncate to that.
const TimestampPrecision = time.Millisecond

// Category is the kind of item a booking refers to.
type Category string

const (
    CategoryFlight Category = "flight"
    CategoryHotel  Category = "hotel"
)

// ParseCategory maps client input onto the closed category set.  The plural
// forms sent by older clients ("flights", "hotels") are accepted.
func ParseCategory(s string) (Category, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "flight", "flights":
        return CategoryFlight, true
    case "hotel", "hotels":
        return CategoryHotel, true
    }
    return "", false
}

// Booking records an item booked by a user.  Payload is the provider
// document echoed back by the client and is stored as-is.
//
// Fields:
//  ID        – UUIDv7 assigned at creation; sorts by creation order.
//  OwnerID   – users.id of the caller that created it; never reassigned.
//  Category  – flight or hotel.
//  Payload   – opaque JSON object.
//  CreatedAt – creation timestamp (UTC, millisecond precision).
type Booking struct {
    ID        string         `json:"id" bson:"_id"`
    OwnerID   string         `json:"ownerId" bson:"owner_id"`
    Category  Category       `json:"category" bson:"category"`
    Payload   map[string]any `json:"payload" bson:"payload"`
    CreatedAt time.Time      `json:"createdAt" bson:"created_at"`
}
