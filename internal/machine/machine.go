package machine

// Machine represents a machine of the pool as reported by the backend
type Machine struct {
	Name          string     `json:"name" required:"true"`
	Host          string     `json:"host"`
	Port          int        `json:"port"`
	User          string     `json:"user"`
	Reserved      bool       `json:"reserved"`
	ReservedBy    *string    `json:"reserved_by"`
	ReservedUntil *Timestamp `json:"reserved_until"`
}

// Create is used to register a new machine
type Create struct {
	Name     string `json:"name" required:"true"`
	Host     string `json:"host" required:"true"`
	Port     int    `json:"port" min:"1" max:"65535"`
	User     string `json:"user" required:"true"`
	Password string `json:"password" required:"true"`
}

// DefaultCreate returns the values a new machine form starts with
func DefaultCreate() *Create {
	return &Create{
		Port: 22,
		User: "root",
	}
}

// Availability represents a snapshot of the pool partitioned into free and reserved machine names
type Availability struct {
	Available []string `json:"available" required:"true"`
	Reserved  []string `json:"reserved" required:"true"`
}
