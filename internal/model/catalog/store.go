package catalog

// Store exposes read-only reference data to the dialogue engine and handlers.
// Products are not held here; the inventory ledger owns them after startup.
type Store struct {
	profile Profile
	staff   []StaffMember
}

// NewStore returns a Store over the supplied reference data.
func NewStore(profile Profile, staff []StaffMember) *Store {
	return &Store{profile: profile, staff: append([]StaffMember(nil), staff...)}
}

// Profile returns the store profile.
func (s *Store) Profile() Profile {
	return s.profile
}

// Staff returns the staff list in file order.
func (s *Store) Staff() []StaffMember {
	return append([]StaffMember(nil), s.staff...)
}
