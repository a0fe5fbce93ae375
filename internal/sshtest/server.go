// Package sshtest provides an in-process SSH server for tests. It
// authenticates a single public key, answers "exec" requests from a
// table of canned responses and serves the "sftp" subsystem from the
// local filesystem.
package sshtest

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Response is the canned answer to a command.
type Response struct {
	Stdout     string
	Stderr     string
	ExitStatus uint32
	Delay      time.Duration
}

// Server is an SSH server listening on a loopback port.
type Server struct {
	Host string
	Port int

	authorized ssh.PublicKey
	config     *ssh.ServerConfig
	listener   net.Listener

	mu        sync.Mutex
	responses map[string]Response
	executed  []string
	conns     map[net.Conn]struct{}
	logins    int

	done chan struct{}
	wg   sync.WaitGroup
}

// NewServer starts a server that accepts the given public key. The
// server is closed when the test finishes.
func NewServer(t testing.TB, authorized ssh.PublicKey) *Server {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	if err != nil {
		t.Fatalf("host signer: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	addr := listener.Addr().(*net.TCPAddr)
	s := &Server{
		Host:       addr.IP.String(),
		Port:       addr.Port,
		authorized: authorized,
		listener:   listener,
		responses:  make(map[string]Response),
		conns:      make(map[net.Conn]struct{}),
		done:       make(chan struct{}),
	}

	s.config = &ssh.ServerConfig{
		PublicKeyCallback: func(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), s.authorized.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("unknown public key for %q", conn.User())
		},
	}
	s.config.AddHostKey(hostSigner)

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)

	return s
}

// Addr returns the "host:port" address of the server.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Handle registers the response to a command.
func (s *Server) Handle(command string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[command] = response
}

// Executed returns the commands received so far in order.
func (s *Server) Executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.executed...)
}

// Logins returns the number of successful handshakes.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// OpenConns returns the number of connections that are still open.
func (s *Server) OpenConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close stops the listener and drops all connections.
func (s *Server) Close() {
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	s.listener.Close()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			conn.Close()
			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)

			s.mu.Lock()
			delete(s.conns, conn)
			s.mu.Unlock()
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	serverConn, channels, requests, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	defer serverConn.Close()

	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	go ssh.DiscardRequests(requests)

	var sessions sync.WaitGroup
	for newChannel := range channels {
		if newChannel.ChannelType() != "session" {
			_ = newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, channelRequests, err := newChannel.Accept()
		if err != nil {
			continue
		}

		sessions.Add(1)
		go func() {
			defer sessions.Done()
			s.handleSession(channel, channelRequests)
		}()
	}
	sessions.Wait()
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			s.exec(channel, payload.Command)
			return

		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				_ = req.Reply(false, nil)
				continue
			}
			_ = req.Reply(true, nil)
			go ssh.DiscardRequests(requests)
			s.sftp(channel)
			return

		default:
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) exec(channel ssh.Channel, command string) {
	s.mu.Lock()
	s.executed = append(s.executed, command)
	response, ok := s.responses[command]
	s.mu.Unlock()

	if !ok {
		response = Response{
			Stderr:     fmt.Sprintf("sh: %s: command not found\n", command),
			ExitStatus: 127,
		}
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-s.done:
			return
		}
	}

	_, _ = io.WriteString(channel, response.Stdout)
	_, _ = io.WriteString(channel.Stderr(), response.Stderr)

	status := struct{ Status uint32 }{response.ExitStatus}
	_, _ = channel.SendRequest("exit-status", false, ssh.Marshal(&status))
}

func (s *Server) sftp(channel ssh.Channel) {
	server, err := sftp.NewServer(channel)
	if err != nil {
		return
	}
	defer server.Close()

	_ = server.Serve()
}

// WriteKey generates an ed25519 key pair, writes the private key in
// PEM format to dir and returns its path with the public key. An
// empty passphrase writes an unencrypted key.
func WriteKey(t testing.TB, dir, passphrase string) (string, ssh.PublicKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	var block *pem.Block
	if passphrase == "" {
		block, err = ssh.MarshalPrivateKey(priv, "")
	} else {
		block, err = ssh.MarshalPrivateKeyWithPassphrase(priv, "", []byte(passphrase))
	}
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("public key: %v", err)
	}

	path := filepath.Join(dir, "id_ed25519")
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	return path, sshPub
}
