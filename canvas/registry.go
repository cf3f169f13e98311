package canvas

// Registry tracks the users of the open connections, keyed by connection id.
// It is not safe for concurrent use; Canvas serialises access to it.
type Registry struct {
	ids   identities
	users map[string]User
	order []string
	// ids of connected users
	taken map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]User),
		taken: make(map[string]struct{}),
	}
}

// Connect issues a user for connID and registers it. Connecting an id that
// is already registered returns the existing user.
func (r *Registry) Connect(connID string) User {
	if u, ok := r.users[connID]; ok {
		return u
	}
	u := r.ids.next(len(r.users))
	for {
		if _, dup := r.taken[u.ID]; !dup {
			break
		}
		u.ID = newUserID()
	}
	r.taken[u.ID] = struct{}{}
	r.users[connID] = u
	r.order = append(r.order, connID)
	return u
}

// Disconnect removes the user of connID. It reports false if there was none.
func (r *Registry) Disconnect(connID string) (User, bool) {
	u, ok := r.users[connID]
	if !ok {
		return User{}, false
	}
	delete(r.users, connID)
	delete(r.taken, u.ID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return u, true
}

// Users returns the connected users in join order.
func (r *Registry) Users() []User {
	users := make([]User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.users[id])
	}
	return users
}

func (r *Registry) Len() int {
	return len(r.users)
}
