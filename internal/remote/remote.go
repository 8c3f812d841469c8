// Package remote implements the plain-text UDP remote command
// protocol, spec.md §6: LinkYSF, LinkFCS, UnLink, status and host
// commands accepted on a dedicated local socket.
package remote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbehnke/ysf-gateway/internal/hostlist"
	"github.com/dbehnke/ysf-gateway/internal/logging"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
)

// Linker is the subset of gwswitch.Switch the remote command server
// drives. Defined here rather than imported so gwswitch never needs to
// know about the remote package.
type Linker interface {
	ForceLink(dgid uint8) error
	ForceUnlink()
	Status() (dgid uint8, linked bool)
}

// Server listens for single-datagram text commands and replies with a
// single-line plain-text response, spec.md §6.
type Server struct {
	socket   *netutil.UDPSocket
	sw       Linker
	registry *hostlist.Registry
	log      *logging.Logger
}

// New builds a remote command server bound to localAddr:port.
func New(localAddr string, port int, sw Linker, registry *hostlist.Registry, log *logging.Logger) *Server {
	return &Server{
		socket:   netutil.NewUDPSocket(localAddr, port),
		sw:       sw,
		registry: registry,
		log:      log.WithComponent("remote"),
	}
}

// Open binds the command socket.
func (s *Server) Open() error { return s.socket.Open() }

// Close releases the command socket.
func (s *Server) Close() error { return s.socket.Close() }

// Dispatch reads and services at most one pending command, matching
// the cooperative non-blocking loop model of spec.md §5.
func (s *Server) Dispatch() {
	buf := make([]byte, 256)
	n, addr, err := s.socket.Read(buf)
	if err != nil || n == 0 {
		return
	}
	reply := s.handle(strings.TrimSpace(string(buf[:n])))
	_ = s.socket.WriteTo([]byte(reply), addr)
}

func (s *Server) handle(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "ERROR empty command"
	}

	switch strings.ToUpper(fields[0]) {
	case "LINKYSF", "LINKFCS":
		if len(fields) != 2 {
			return "ERROR usage: " + fields[0] + " <dgid>"
		}
		dgid, err := strconv.ParseUint(fields[1], 10, 8)
		if err != nil {
			return "ERROR invalid dgid"
		}
		if err := s.sw.ForceLink(uint8(dgid)); err != nil {
			return "ERROR " + err.Error()
		}
		return "OK linked"

	case "UNLINK":
		s.sw.ForceUnlink()
		return "OK unlinked"

	case "STATUS":
		dgid, linked := s.sw.Status()
		if !linked {
			return "STATUS unlinked"
		}
		return fmt.Sprintf("STATUS linked dgid=%d", dgid)

	case "HOST":
		if s.registry == nil || len(fields) < 2 {
			return "ERROR usage: HOST <query>"
		}
		matches := s.registry.Search(strings.Join(fields[1:], " "))
		if len(matches) == 0 {
			return "HOST no matches"
		}
		names := make([]string, 0, len(matches))
		for _, m := range matches {
			names = append(names, m.ID+":"+m.Name)
		}
		return "HOST " + strings.Join(names, ",")

	default:
		return "ERROR unknown command"
	}
}
