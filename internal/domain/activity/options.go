package activity

// ListOptions provides filtering options for listing activity.
type ListOptions struct {
	EntityType EntityType
	EntityID   string
	UserID     *string
	Action     *Action
	Limit      int
	Offset     int
}
