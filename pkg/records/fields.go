package records

// IDField is the record identifier. It is projected on every query.
const IDField = "_id"

// Column names.
const (
	CreatedDT            = "created_dt"
	DataSourceModifiedDT = "data_source_modified_dt"
	EntityType           = "entity_type"
	OperatingStatus      = "operating_status"
	LegalName            = "legal_name"
	DBAName              = "dba_name"
	PhysicalAddress      = "physical_address"
	Phone                = "phone"
	USDOTNumber          = "usdot_number"
	PowerUnits           = "power_units"
	MCMXFFNumber         = "mc_mx_ff_number"
	OutOfServiceDate     = "out_of_service_date"
)

// Kind is the storage type of a column.
type Kind int

const (
	KindUnknown Kind = iota
	KindText
	KindInt
	KindTime
)

// Columns is the projection allow-list, in documented order.
var Columns = []string{
	CreatedDT,
	DataSourceModifiedDT,
	EntityType,
	OperatingStatus,
	LegalName,
	DBAName,
	PhysicalAddress,
	Phone,
	USDOTNumber,
	PowerUnits,
	MCMXFFNumber,
	OutOfServiceDate,
}

// SearchFields is the free-text search scope.
var SearchFields = []string{
	LegalName,
	DBAName,
	PhysicalAddress,
	Phone,
	MCMXFFNumber,
}

var columnKinds = map[string]Kind{
	CreatedDT:            KindTime,
	DataSourceModifiedDT: KindTime,
	EntityType:           KindText,
	OperatingStatus:      KindText,
	LegalName:            KindText,
	DBAName:              KindText,
	PhysicalAddress:      KindText,
	Phone:                KindText,
	USDOTNumber:          KindInt,
	PowerUnits:           KindInt,
	MCMXFFNumber:         KindText,
	OutOfServiceDate:     KindTime,
}

var searchable = map[string]struct{}{
	LegalName:       {},
	DBAName:         {},
	PhysicalAddress: {},
	Phone:           {},
	MCMXFFNumber:    {},
}

// IsColumn reports whether name is one of the twelve allow-listed columns.
func IsColumn(name string) bool {
	_, ok := columnKinds[name]
	return ok
}

// IsSearchField reports whether name is part of the free-text search scope.
func IsSearchField(name string) bool {
	_, ok := searchable[name]
	return ok
}

// FieldKind returns the storage type of a column, KindUnknown otherwise.
func FieldKind(name string) Kind {
	return columnKinds[name]
}

// Values returns the record's fields keyed by column name.
func (r Record) Values() map[string]any {
	m := map[string]any{
		CreatedDT:            r.CreatedDT,
		DataSourceModifiedDT: r.DataSourceModifiedDT,
		EntityType:           r.EntityType,
		OperatingStatus:      r.OperatingStatus,
		LegalName:            r.LegalName,
		DBAName:              r.DBAName,
		PhysicalAddress:      r.PhysicalAddress,
		Phone:                r.Phone,
		MCMXFFNumber:         r.MCMXFFNumber,
		USDOTNumber:          nil,
		PowerUnits:           nil,
		OutOfServiceDate:     nil,
	}
	if r.USDOTNumber != nil {
		m[USDOTNumber] = *r.USDOTNumber
	}
	if r.PowerUnits != nil {
		m[PowerUnits] = *r.PowerUnits
	}
	if r.OutOfServiceDate != nil {
		m[OutOfServiceDate] = *r.OutOfServiceDate
	}
	return m
}
