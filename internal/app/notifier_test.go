package app_test

import "sync"

// fakeNotifier records room membership and every emission so tests can assert
// on exact event counts.
type emission struct {
	room    string
	conn    string
	event   string
	payload any
}

type fakeNotifier struct {
	mu        sync.Mutex
	connected map[string]bool
	rooms     map[string][]string
	emitted   []emission
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		connected: make(map[string]bool),
		rooms:     make(map[string][]string),
	}
}

func (n *fakeNotifier) connect(connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.connected[connID] = true
}

func (n *fakeNotifier) drop(connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.connected, connID)
	for roomID, members := range n.rooms {
		n.rooms[roomID] = remove(members, connID)
	}
}

func (n *fakeNotifier) JoinRoom(roomID string, connIDs ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms[roomID] = append(n.rooms[roomID], connIDs...)
}

func (n *fakeNotifier) LeaveRoom(roomID string, connIDs ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	members := n.rooms[roomID]
	for _, connID := range connIDs {
		members = remove(members, connID)
	}
	if len(members) == 0 {
		delete(n.rooms, roomID)
		return
	}
	n.rooms[roomID] = members
}

func (n *fakeNotifier) EmitRoom(roomID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emitted = append(n.emitted, emission{room: roomID, event: event, payload: payload})
}

func (n *fakeNotifier) EmitConn(connID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emitted = append(n.emitted, emission{conn: connID, event: event, payload: payload})
}

func (n *fakeNotifier) RoomMembers(roomID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	members := make([]string, len(n.rooms[roomID]))
	copy(members, n.rooms[roomID])
	return members
}

func (n *fakeNotifier) IsConnected(connID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connected[connID]
}

func (n *fakeNotifier) events() []emission {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]emission, len(n.emitted))
	copy(out, n.emitted)
	return out
}

func (n *fakeNotifier) payloadsFor(event string) []any {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []any
	for _, e := range n.emitted {
		if e.event == event {
			out = append(out, e.payload)
		}
	}
	return out
}

func (n *fakeNotifier) connEventsFor(connID, event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.emitted {
		if e.conn == connID && e.event == event {
			count++
		}
	}
	return count
}

func remove(list []string, id string) []string {
	out := list[:0]
	for _, entry := range list {
		if entry != id {
			out = append(out, entry)
		}
	}
	return out
}
