package util

import (
	"bufio"
	"fmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ctrlListeners = make(map[string]*CtrlListener)
var ctrlMutex sync.Mutex

// CtrlListener accepts line-oriented commands on a unix socket and dispatches each line to the
// callbacks registered for its first token. Every instrument in a process shares one listener
// per (root, id).
type CtrlListener struct {
	key       string
	listener  *net.UnixListener
	callbacks map[string][]func(string) error
	lock      sync.Mutex
	running   bool
}

func GetCtrlListener(root, id string) (cl *CtrlListener, err error) {
	ctrlMutex.Lock()
	defer ctrlMutex.Unlock()

	key := root + id
	cl, found := ctrlListeners[key]
	if found {
		return cl, nil
	}

	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "error creating ctrl root [%s]", root)
	}
	cl = &CtrlListener{key: key, callbacks: make(map[string][]func(string) error)}
	unixAddress, err := net.ResolveUnixAddr("unix", CtrlSocketPath(root, id))
	if err != nil {
		return nil, errors.Wrap(err, "error resolving unix address")
	}
	cl.listener, err = net.ListenUnix("unix", unixAddress)
	if err != nil {
		return nil, errors.Wrap(err, "error listening")
	}
	ctrlListeners[key] = cl
	return cl, nil
}

func CtrlSocketPath(root, id string) string {
	return filepath.Join(root, fmt.Sprintf("%s.%d.sock", id, os.Getpid()))
}

func (self *CtrlListener) Addr() string {
	return self.listener.Addr().String()
}

func (self *CtrlListener) AddCallback(keyword string, f func(string) error) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.callbacks[keyword] = append(self.callbacks[keyword], f)
}

func (self *CtrlListener) Start() {
	self.lock.Lock()
	defer self.lock.Unlock()

	if !self.running {
		self.running = true
		go self.run()
	}
}

func (self *CtrlListener) Close() error {
	ctrlMutex.Lock()
	delete(ctrlListeners, self.key)
	ctrlMutex.Unlock()
	return self.listener.Close()
}

func (self *CtrlListener) run() {
	logrus.Infof("[%s] started", self.listener.Addr())
	defer logrus.Infof("[%s] exited", self.listener.Addr())

	for {
		conn, err := self.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Temporary() {
				logrus.Errorf("error accepting ctrl connection (%v)", err)
				continue
			}
			return
		}
		go self.handle(conn)
	}
}

func (self *CtrlListener) handle(conn net.Conn) {
	logrus.Debugf("new connection for [%s]", conn.LocalAddr())
	defer logrus.Debugf("ended connection for [%s]", conn.LocalAddr())
	defer func() { _ = conn.Close() }()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := conn.Write([]byte(self.dispatch(strings.TrimSpace(line)))); err != nil {
			logrus.Errorf("error responding (%v)", err)
			return
		}
	}
}

func (self *CtrlListener) dispatch(line string) string {
	tokens := strings.Fields(line)
	if len(tokens) < 1 {
		logrus.Errorf("no tokens")
		return "syntax error?\n"
	}

	self.lock.Lock()
	fs, found := self.callbacks[tokens[0]]
	self.lock.Unlock()
	if !found {
		logrus.Errorf("no callback for [%s]", line)
		return "syntax error?\n"
	}
	for _, f := range fs {
		if err := f(line); err != nil {
			logrus.Errorf("error executing callback (%v)", err)
			return fmt.Sprintf("error (%s)\n", err)
		}
	}
	return "ok\n"
}

// SendCtrlCommand writes a single command line to a ctrl socket and returns the trimmed reply.
func SendCtrlCommand(path, command string) (string, error) {
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return "", errors.Wrapf(err, "error resolving [%s]", path)
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return "", errors.Wrapf(err, "error dialing [%s]", path)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return "", errors.Wrap(err, "error writing command")
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "error reading reply")
	}
	return strings.TrimSpace(line), nil
}
