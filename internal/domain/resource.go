package domain

// ResourceKind classifies what a bookable resource is in its vertical.
type ResourceKind string

const (
	KindStaff   ResourceKind = "STAFF"
	KindTable   ResourceKind = "TABLE"
	KindMachine ResourceKind = "MACHINE"
	KindRoom    ResourceKind = "ROOM"
)

// CapacityModel decides how booking legality is judged for a resource.
type CapacityModel string

const (
	// CapacityExclusive allows at most one active booking at any instant.
	CapacityExclusive CapacityModel = "EXCLUSIVE"
	// CapacityThroughput allows overlapping bookings while cumulative load
	// stays within DailyCapacityUnits per day.
	CapacityThroughput CapacityModel = "THROUGHPUT"
)

// ResourceStatus is a cached projection of a resource's current bookings,
// plus administrative overrides. It is never consulted to decide legality
// for THROUGHPUT resources.
type ResourceStatus string

const (
	StatusAvailable    ResourceStatus = "AVAILABLE"
	StatusOccupied     ResourceStatus = "OCCUPIED"
	StatusOutOfService ResourceStatus = "OUT_OF_SERVICE"
	StatusMaintenance  ResourceStatus = "MAINTENANCE"
)

// Resource is a bookable thing: a staff member, a table, a machine, a room.
type Resource struct {
	ID            string
	TenantID      string
	Name          string
	Kind          ResourceKind
	CapacityModel CapacityModel
	// DailyCapacityUnits is hours of work the resource can absorb per day.
	// Meaningful only when CapacityModel is THROUGHPUT.
	DailyCapacityUnits float64
	Status             ResourceStatus
}

// IsExclusive reports whether the resource serves one booking at a time.
func (r Resource) IsExclusive() bool {
	return r.CapacityModel == CapacityExclusive
}

// OutOfRotation reports whether an administrator has pulled the resource
// from service. Only the registry sets these states; the lifecycle
// recompute leaves them alone.
func (r Resource) OutOfRotation() bool {
	return r.Status == StatusOutOfService || r.Status == StatusMaintenance
}

// ValidKind reports whether k is a known resource kind.
func ValidKind(k ResourceKind) bool {
	switch k {
	case KindStaff, KindTable, KindMachine, KindRoom:
		return true
	}
	return false
}

// ValidCapacityModel reports whether m is a known capacity model.
func ValidCapacityModel(m CapacityModel) bool {
	return m == CapacityExclusive || m == CapacityThroughput
}

// ValidResourceStatus reports whether s is a known resource status.
func ValidResourceStatus(s ResourceStatus) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusOutOfService, StatusMaintenance:
		return true
	}
	return false
}
