// Package broadcast fans events out to the subscribers of one session.
// A Group belongs to exactly one room goroutine and is not locked; a Client
// may sit in several groups at once.
package broadcast

import (
	"sync"

	"github.com/DoyleJ11/chess-session-backend/internal/types"
)

// Client is one connected identity's outbox.
type Client struct {
	ID string

	out  chan types.Event
	done chan struct{}
	once sync.Once
}

func NewClient(id string, buffer int) *Client {
	if buffer < 1 {
		buffer = 1
	}
	return &Client{
		ID:   id,
		out:  make(chan types.Event, buffer),
		done: make(chan struct{}),
	}
}

// Deliver queues ev without blocking. A full outbox marks the client as too
// slow: it is kicked and the event dropped.
func (c *Client) Deliver(ev types.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.out <- ev:
		return true
	default:
		c.Kick()
		return false
	}
}

// Events is read by the connection writer. It is never closed; watch Done.
func (c *Client) Events() <-chan types.Event { return c.out }

func (c *Client) Done() <-chan struct{} { return c.done }

// Kick ends the client. Safe to call more than once.
func (c *Client) Kick() { c.once.Do(func() { close(c.done) }) }

func (c *Client) Kicked() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Group is the set of clients subscribed to a session, in join order.
type Group struct {
	order   []string
	members map[string]*Client
}

func NewGroup(initial ...*Client) *Group {
	g := &Group{members: make(map[string]*Client)}
	for _, c := range initial {
		g.Add(c)
	}
	return g
}

// Add subscribes c, replacing an older client for the same identity.
func (g *Group) Add(c *Client) {
	if _, ok := g.members[c.ID]; !ok {
		g.order = append(g.order, c.ID)
	}
	g.members[c.ID] = c
}

func (g *Group) Remove(id string) *Client {
	c, ok := g.members[id]
	if !ok {
		return nil
	}
	delete(g.members, id)
	for i, other := range g.order {
		if other == id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return c
}

func (g *Group) Get(id string) *Client { return g.members[id] }

func (g *Group) Has(id string) bool {
	_, ok := g.members[id]
	return ok
}

func (g *Group) Len() int { return len(g.members) }

func (g *Group) IDs() []string { return append([]string(nil), g.order...) }

// Publish sends ev to every member in join order. Members that cannot keep up
// are dropped from the group and returned.
func (g *Group) Publish(ev types.Event) []string {
	var dropped []string
	for _, id := range g.IDs() {
		if !g.members[id].Deliver(ev) {
			g.Remove(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Send delivers ev to one member. It reports false if the member is absent or was dropped.
func (g *Group) Send(id string, ev types.Event) bool {
	c, ok := g.members[id]
	if !ok {
		return false
	}
	if !c.Deliver(ev) {
		g.Remove(id)
		return false
	}
	return true
}

// Drain detaches every member and returns them in join order. Nobody is kicked.
func (g *Group) Drain() []*Client {
	out := make([]*Client, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.members[id])
	}
	g.order = nil
	clear(g.members)
	return out
}
