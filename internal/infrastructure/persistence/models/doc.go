// Package models contains the GORM persistence models of the fulfillment tables.
// Domain types in internal/domain/supply carry no ORM tags; repositories map
// between the two.
package models
