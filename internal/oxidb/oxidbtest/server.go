// Package oxidbtest runs an in-process stand-in for oxidb-server that speaks
// the same framed JSON protocol. It implements the subset of commands the
// OxiSign repositories issue: equality and $lt/$gte filters, single-key sort,
// skip/limit, $set updates and unique indexes.
package oxidbtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/parisxmas/OxiDB/OxiSign/internal/oxidb"
)

type collection struct {
	nextID int
	docs   []map[string]any
	unique map[string]bool
}

// Server is a fake oxidb-server bound to a loopback port.
type Server struct {
	ln    net.Listener
	mu    sync.Mutex
	colls map[string]*collection
	wg    sync.WaitGroup
}

// Start listens on 127.0.0.1 and stops the server when the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("oxidbtest: listen: %v", err)
	}
	s := &Server{ln: ln, colls: make(map[string]*collection)}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr())
	n, _ := strconv.Atoi(port)
	return n
}

func (s *Server) Close() {
	s.ln.Close()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	for {
		frame, err := oxidb.ReadFrame(conn)
		if err != nil {
			return
		}
		var req map[string]any
		resp := map[string]any{"ok": true}
		if err := json.Unmarshal(frame, &req); err != nil {
			resp = map[string]any{"ok": false, "error": "bad request"}
		} else if data, err := s.dispatch(req); err != nil {
			resp = map[string]any{"ok": false, "error": err.Error()}
		} else {
			resp["data"] = data
		}
		out, _ := json.Marshal(resp)
		if err := oxidb.WriteFrame(conn, out); err != nil {
			return
		}
	}
}

func (s *Server) coll(name string) *collection {
	c, ok := s.colls[name]
	if !ok {
		c = &collection{unique: make(map[string]bool)}
		s.colls[name] = c
	}
	return c
}

func (s *Server) dispatch(req map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, _ := req["collection"].(string)
	query, _ := req["query"].(map[string]any)

	switch req["cmd"] {
	case "ping":
		return "pong", nil
	case "drop_collection":
		delete(s.colls, name)
		return nil, nil
	case "create_index":
		s.coll(name)
		return nil, nil
	case "create_unique_index":
		field, _ := req["field"].(string)
		s.coll(name).unique[field] = true
		return nil, nil
	case "insert":
		c := s.coll(name)
		doc, _ := req["doc"].(map[string]any)
		if doc == nil {
			doc = map[string]any{}
		}
		if err := c.checkUnique(doc, nil); err != nil {
			return nil, err
		}
		c.nextID++
		doc["_id"] = float64(c.nextID)
		c.docs = append(c.docs, doc)
		return map[string]any{"id": float64(c.nextID)}, nil
	case "find":
		return s.coll(name).find(query, req), nil
	case "find_one":
		for _, d := range s.coll(name).docs {
			if matches(d, query) {
				return d, nil
			}
		}
		return nil, nil
	case "count":
		n := 0
		for _, d := range s.coll(name).docs {
			if matches(d, query) {
				n++
			}
		}
		return map[string]any{"count": float64(n)}, nil
	case "update_one":
		c := s.coll(name)
		update, _ := req["update"].(map[string]any)
		set, _ := update["$set"].(map[string]any)
		for _, d := range c.docs {
			if !matches(d, query) {
				continue
			}
			if err := c.checkUnique(set, d); err != nil {
				return nil, err
			}
			for k, v := range set {
				d[k] = v
			}
			return map[string]any{"modified": float64(1)}, nil
		}
		return map[string]any{"modified": float64(0)}, nil
	case "delete":
		c := s.coll(name)
		kept := c.docs[:0]
		deleted := 0
		for _, d := range c.docs {
			if matches(d, query) {
				deleted++
				continue
			}
			kept = append(kept, d)
		}
		c.docs = kept
		return map[string]any{"deleted": float64(deleted)}, nil
	}
	return nil, fmt.Errorf("unknown command %v", req["cmd"])
}

func (c *collection) checkUnique(doc, self map[string]any) error {
	for field := range c.unique {
		v, ok := doc[field]
		if !ok {
			continue
		}
		for _, d := range c.docs {
			if self != nil && reflect.ValueOf(d).Pointer() == reflect.ValueOf(self).Pointer() {
				continue
			}
			if reflect.DeepEqual(d[field], v) {
				return errors.New("unique index violation on " + field)
			}
		}
	}
	return nil
}

func (c *collection) find(query, req map[string]any) []map[string]any {
	var out []map[string]any
	for _, d := range c.docs {
		if matches(d, query) {
			out = append(out, d)
		}
	}
	if sortSpec, ok := req["sort"].(map[string]any); ok {
		for field, dir := range sortSpec {
			desc, _ := dir.(float64)
			sort.SliceStable(out, func(i, j int) bool {
				if desc < 0 {
					return less(out[j][field], out[i][field])
				}
				return less(out[i][field], out[j][field])
			})
		}
	}
	if skip, ok := req["skip"].(float64); ok {
		if int(skip) >= len(out) {
			out = nil
		} else {
			out = out[int(skip):]
		}
	}
	if limit, ok := req["limit"].(float64); ok && int(limit) < len(out) {
		out = out[:int(limit)]
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out
}

func matches(doc, query map[string]any) bool {
	for field, want := range query {
		got := doc[field]
		if ops, ok := want.(map[string]any); ok {
			for op, operand := range ops {
				switch op {
				case "$lt":
					if !less(got, operand) {
						return false
					}
				case "$gte":
					if less(got, operand) {
						return false
					}
				default:
					return false
				}
			}
			continue
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func less(a, b any) bool {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case string:
		bv, _ := b.(string)
		return av < bv
	}
	return false
}
