// Package records defines the FMCSA carrier record and the fixed sets of
// field names clients are allowed to reference.
package records

import "time"

// Record is one carrier entry as seeded from the FMCSA export. All twelve
// fields are always serialized so a stored record never lacks a column.
type Record struct {
	CreatedDT            time.Time  `json:"created_dt" bson:"created_dt" db:"created_dt"`
	DataSourceModifiedDT time.Time  `json:"data_source_modified_dt" bson:"data_source_modified_dt" db:"data_source_modified_dt"`
	EntityType           string     `json:"entity_type" bson:"entity_type" db:"entity_type"`
	OperatingStatus      string     `json:"operating_status" bson:"operating_status" db:"operating_status"`
	LegalName            string     `json:"legal_name" bson:"legal_name" db:"legal_name"`
	DBAName              string     `json:"dba_name" bson:"dba_name" db:"dba_name"`
	PhysicalAddress      string     `json:"physical_address" bson:"physical_address" db:"physical_address"`
	Phone                string     `json:"phone" bson:"phone" db:"phone"`
	USDOTNumber          *int64     `json:"usdot_number" bson:"usdot_number" db:"usdot_number"`
	PowerUnits           *int64     `json:"power_units" bson:"power_units" db:"power_units"`
	MCMXFFNumber         string     `json:"mc_mx_ff_number" bson:"mc_mx_ff_number" db:"mc_mx_ff_number"`
	OutOfServiceDate     *time.Time `json:"out_of_service_date" bson:"out_of_service_date" db:"out_of_service_date"`
}

// Document is a projected record as returned by a store. Keys are column
// names plus IDField; values are strings, int64s, time.Times or nil.
type Document map[string]any
