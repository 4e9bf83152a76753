package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "coilsrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:  ":8000",
		Nodes: []ObjSetup{}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `coilsrv drives electromagnet coils from B+K 1739 power supplies and
exposes an HTTP interface to them.

Usage:
	coilsrv <command>

Commands:
	run
	help
	mkconf
	conf
	check <file>
	version`
	fmt.Println(str)
}

func help() {
	str := `coilsrv is configured via its .yaml file.  For a primer on YAML, see
https://yaml.org/start.html

Without a configuration, the server will close immediately with an
error that there are no nodes.

No two nodes can have the same Endpoint.

Node types, case insensitive:
- "supply", "bk1739":  a bare B+K 1739; serves id, mode, voltage, current
- "coil":              a supply-driven electromagnet; serves field
- "trimmedcoil":       a coil plus a DAC-driven trim winding; serves
                       field, net-field, trim-pending.  Setting field
                       replies with the DAC write to forward to the
                       DAC batcher.

Set Mock: true to swap every supply for an in-memory mock, which is
useful for exercising clients with no hardware on the bench.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

// check parses a config file directly and echoes what was understood,
// without starting the server.
func check(path string) {
	c, err := LoadYaml(path)
	if err != nil {
		log.Fatal(err)
	}
	err = yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("coilsrv version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	if len(c.Nodes) == 0 {
		log.Fatal("no nodes configured, nothing to serve")
	}
	mux := BuildMux(c)
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "check":
		if len(args) < 3 {
			log.Fatal("check requires a path to a config file")
		}
		check(args[2])
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
