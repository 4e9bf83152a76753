package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/maglab/coilctl/bk1739"
	"github.com/maglab/coilctl/coil"
	"github.com/maglab/coilctl/server"
	"github.com/maglab/coilctl/server/middleware/locker"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-yaml/yaml"
)

// TrimSetup holds the constructor arguments for a trim winding.
type TrimSetup struct {
	// DAC is the name of the DAC channel driving the winding, e.g. DAC0
	DAC string `yaml:"DAC"`

	// FieldGain is the winding's T/A constant
	FieldGain float64 `yaml:"FieldGain"`

	// VoltsPerAmp is the op-amp current source gain; 250 if omitted
	VoltsPerAmp float64 `yaml:"VoltsPerAmp"`
}

// ObjSetup holds the args for one served node.
type ObjSetup struct {
	// Addr is the filesystem address of the supply's port, e.g. /dev/ttyS4
	Addr string `yaml:"Addr"`

	// Endpoint is the URL stem the node's routes are served under,
	// e.g. "coils/x" produces routes of /coils/x/field etc.
	Endpoint string `yaml:"Endpoint"`

	// Type is the kind of node: supply, coil, or trimmedcoil
	Type string `yaml:"Type"`

	// FieldGain is the main coil's T/A constant; unused for bare supplies
	FieldGain float64 `yaml:"FieldGain"`

	// Trim configures the trim winding of a trimmedcoil node
	Trim TrimSetup `yaml:"Trim"`
}

// Config holds the initialization parameters for the served nodes.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr"`

	// Mock swaps every supply for an in-memory mock
	Mock bool `yaml:"Mock"`

	// Nodes is the list of nodes to set up
	Nodes []ObjSetup `yaml:"Nodes"`
}

// LoadYaml converts a (path to a) yaml file into a Config struct.
func LoadYaml(path string) (Config, error) {
	cfg := Config{}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	err = yaml.NewDecoder(f).Decode(&cfg)
	return cfg, err
}

// sanitizeStem prepares an endpoint for mounting, "coils/x" => "/coils/x"
func sanitizeStem(stem string) string {
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	return strings.TrimSuffix(stem, "/")
}

// makeSupply returns the hardware driver, or the mock when mocking.
func makeSupply(node ObjSetup, mock bool) bk1739.Controller {
	if mock {
		return bk1739.NewMockSupply(node.Addr)
	}
	return bk1739.NewSupply(node.Addr)
}

// BuildMux constructs a chi router serving every configured node under
// its endpoint, plus /endpoints, which returns the supergraph of all
// routes as JSON.
func BuildMux(c Config) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}

	for _, node := range c.Nodes {
		var httper server.HTTPer
		sup := makeSupply(node, c.Mock)
		switch strings.ToLower(node.Type) {
		case "supply", "bk1739":
			httper = bk1739.NewHTTPWrapper(sup)

		case "coil":
			cl, err := coil.NewCoil(sup, coil.DefaultCalibration(node.FieldGain))
			if err != nil {
				log.Fatal("could not initialize coil at ", node.Addr, ": ", err)
			}
			httper = coil.NewHTTPWrapper(cl)

		case "trimmedcoil":
			cl, err := coil.NewCoil(sup, coil.DefaultCalibration(node.FieldGain))
			if err != nil {
				log.Fatal("could not initialize coil at ", node.Addr, ": ", err)
			}
			vpa := node.Trim.VoltsPerAmp
			if vpa == 0 {
				vpa = 250
			}
			trim := coil.NewTrimCoil(node.Trim.DAC, node.Trim.FieldGain, vpa)
			httper = coil.NewHTTPTrimmedCoil(coil.NewTrimmedCoil(cl, trim))

		default:
			log.Fatal("type ", node.Type, " not understood")
		}

		// one operator at a time per serial line
		lock := locker.New()
		locker.Inject(httper, lock)

		stem := sanitizeStem(node.Endpoint)
		supergraph[stem] = httper.RT().Endpoints()

		r := chi.NewRouter()
		r.Use(lock.Check)
		httper.RT().Bind(r)
		root.Mount(stem, r)
	}

	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root
}
