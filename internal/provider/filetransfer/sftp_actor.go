// Package filetransfer implements the File Transfer Provider Actor kind
// (spec §4.4) backed by SFTP via pkg/sftp over golang.org/x/crypto/ssh.
package filetransfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
)

// Activate dials an SSH session and opens an SFTP client against the
// descriptor's config (expects "host", "port", "username", "password")
// and spawns the actor.
func Activate(ctx context.Context, desc *domain.ProviderDescriptor, inboxDepth int, logger *zap.Logger) (*actor.Actor, error) {
	port, _ := strconv.Atoi(desc.Config["port"])
	if port == 0 {
		port = 22
	}
	sshConfig := &ssh.ClientConfig{
		User:            desc.Config["username"],
		Auth:            []ssh.AuthMethod{ssh.Password(desc.Config["password"])},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}
	addr := fmt.Sprintf("%s:%d", desc.Config["host"], port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return nil, &domain.ConnectionError{Message: err.Error()}
	}
	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, &domain.ConnectionError{Message: err.Error()}
	}

	handle := func(ctx context.Context, op string, args []byte) ([]byte, error) {
		return dispatch(client, op, args)
	}
	test := func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		_, err := client.Getwd()
		return time.Since(start), err
	}
	info := func() domain.ConnectionInfo {
		return domain.ConnectionInfo{
			Kind:    domain.ProviderKindFileTransfer,
			Subtype: desc.Subtype,
			Details: map[string]string{"host": desc.Config["host"]},
		}
	}
	closeFn := func() {
		client.Close()
		sshConn.Close()
	}

	return actor.Spawn(desc.Name, domain.ProviderKindFileTransfer, inboxDepth, handle, test, info, closeFn, logger), nil
}

func dispatch(client *sftp.Client, op string, rawArgs []byte) ([]byte, error) {
	switch op {
	case "put":
		var args struct {
			Path string `json:"path"`
			Body []byte `json:"body"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		f, err := client.Create(args.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if _, err := f.Write(args.Body); err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	case "get":
		var args struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		f, err := client.Open(args.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, f); err != nil {
			return nil, err
		}
		return json.Marshal(struct {
			Body []byte `json:"body"`
		}{Body: buf.Bytes()})

	case "list":
		var args struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		entries, err := client.ReadDir(args.Path)
		if err != nil {
			return nil, err
		}
		out := make([]struct {
			Name  string `json:"name"`
			IsDir bool   `json:"is_dir"`
			Size  int64  `json:"size"`
		}, 0, len(entries))
		for _, e := range entries {
			out = append(out, struct {
				Name  string `json:"name"`
				IsDir bool   `json:"is_dir"`
				Size  int64  `json:"size"`
			}{Name: e.Name(), IsDir: e.IsDir(), Size: e.Size()})
		}
		return json.Marshal(struct {
			Entries any `json:"entries"`
		}{Entries: out})

	case "delete":
		var args struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		if err := client.Remove(args.Path); err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	default:
		return nil, fmt.Errorf("file transfer provider: unknown op %q", op)
	}
}
