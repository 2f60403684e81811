// Package gunsh is an interactive shell commanding a gun over the
// FDC-Gun link.
package gunsh

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/TopGunSnake/example-simulators/pkg/fdcgun"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration
	// Addr is connected on start when set.
	Addr string

	Shell *ishell.Shell
	Link  *Link
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	evalOnly   bool
	outputJSON bool
	gunAddr    = os.Getenv("CFF_GUN_ADDR")
	timeout    = 5 * time.Second

	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&StatusCmd,
		&FireCmd,
		&CheckFireCmd,
	}
)

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&gunAddr, "gun", gunAddr, "Gun address to connect on start.")
	flag.DurationVar(&timeout, "timeout", timeout, "Request timeout.")
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,
		Addr:        gunAddr,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Link == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Print prints a message from the gun.
func (s *Shell) Print(msg fdcgun.Message) {
	if s.OutputJSON {
		out, err := json.Marshal(map[string]fdcgun.Message{msg.Type().String(): msg})
		if err != nil {
			s.Shell.Println(err)
			return
		}
		s.Shell.Println(string(out))
		return
	}
	s.Shell.Println(FormatMessage(msg))
}

// DoRequest sends a request and prints the reply.
func DoRequest(c *ishell.Context, msg fdcgun.Message) error {
	s := ShellFrom(c)
	reply, err := s.Link.Call(msg, s.Timeout)
	if err != nil {
		c.Err(err)
		return err
	}
	s.Print(reply)
	return nil
}

// Connect connects the gun at addr.
func (s *Shell) Connect(addr string) error {
	link, err := Dial(addr, func(report fdcgun.FireReport) { s.Print(report) })
	if err != nil {
		return err
	}
	s.Disconnect()
	s.Link = link
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", addr))
	go func() {
		<-link.Done()
		glog.V(1).Infof("gun %s link closed", addr)
	}()
	return nil
}

// Disconnect disconnects current gun.
func (s *Shell) Disconnect() {
	if link := s.Link; link != nil {
		s.Link = nil
		if err := link.Close(); err != nil {
			glog.Warningf("gun %s: %v", link.Addr, err)
		}
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.Addr != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Addr)
		}
		if err := s.Connect(s.Addr); err != nil {
			glog.Exitf("connect %s failed: %v", s.Addr, err)
		}
	}
	defer s.Disconnect()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// ConnectCmd connects a gun.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "HOST:PORT",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("HOST:PORT required"))
				return
			}
			if err := ShellFrom(c).Connect(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current gun.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// StatusCmd queries the gun status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			DoRequest(c, fdcgun.StatusRequest{})
		}),
	}

	// FireCmd commands the gun to fire.
	FireCmd = ishell.Cmd{
		Name:    "fire",
		Aliases: []string{"f"},
		Help:    "ROUNDS RANGE DIRECTION",
		Func: MustBeConnected(func(c *ishell.Context) {
			cmd, err := ParseFireCommand(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			DoRequest(c, cmd)
		}),
	}

	// CheckFireCmd orders the gun to cease fire.
	CheckFireCmd = ishell.Cmd{
		Name:    "checkfire",
		Aliases: []string{"cf"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			DoRequest(c, fdcgun.CheckFire{})
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
