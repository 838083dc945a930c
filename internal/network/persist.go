package network

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/synapse/internal/nn"
	"github.com/born-ml/synapse/internal/optim"
	"github.com/born-ml/synapse/internal/serialization"
)

// ModelType identifies networks in .syn headers.
const ModelType = "synapse.network"

// model is the JSON document stored in the .syn header. Optimizers are kept
// in a table so layers that shared an instance share it again after Load.
type model struct {
	LearningRate float64          `json:"learning_rate"`
	Loss         string           `json:"loss"`
	Optimizer    int              `json:"optimizer"` // index into Optimizers
	Optimizers   []optimizerEntry `json:"optimizers"`
	Layers       []layerEntry     `json:"layers"`
}

type optimizerEntry struct {
	Name   string             `json:"name"`
	Config map[string]float64 `json:"config"`
}

type layerEntry struct {
	Spec      nn.Spec `json:"spec"`
	Optimizer int     `json:"optimizer"` // -1 for layers without parameters
	Params    int     `json:"params"`
	State     int     `json:"state"`
}

var blockFields = [4]string{"values", "grads", "moments", "variances"}

func paramName(layer, block int, field string) string {
	return fmt.Sprintf("layer.%d.param.%d.%s", layer, block, field)
}

func stateName(layer, k int) string {
	return fmt.Sprintf("layer.%d.state.%d", layer, k)
}

// Save writes the network, including optimizer scratch and layer state, to w.
func (n *Network) Save(w io.Writer) error {
	m := model{LearningRate: n.lr, Loss: n.loss.Name()}
	index := make(map[optim.Optimizer]int)
	ref := func(opt optim.Optimizer) int {
		if opt == nil {
			return -1
		}
		if i, ok := index[opt]; ok {
			return i
		}
		index[opt] = len(m.Optimizers)
		m.Optimizers = append(m.Optimizers, optimizerEntry{Name: opt.Name(), Config: opt.Config()})
		return index[opt]
	}
	m.Optimizer = ref(n.opt)

	var (
		tensors []serialization.Tensor
		flags   = serialization.FlagHasOptimizer
	)
	for i, l := range n.layers {
		entry := layerEntry{Spec: l.Spec(), Optimizer: ref(l.Optimizer())}

		blocks := l.Parameters()
		entry.Params = len(blocks)
		for j, b := range blocks {
			for k, data := range [][]float64{b.Values, b.Grads, b.Moments, b.Variances} {
				tensors = append(tensors, serialization.Tensor{
					Name: paramName(i, j, blockFields[k]), Shape: []int{len(data)}, Data: data,
				})
			}
		}

		if s, ok := l.(nn.Stateful); ok {
			state := s.State()
			entry.State = len(state)
			for k, v := range state {
				tensors = append(tensors, serialization.Tensor{Name: stateName(i, k), Shape: []int{len(v)}, Data: v})
			}
			flags |= serialization.FlagHasState
		}
		m.Layers = append(m.Layers, entry)
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	return serialization.Encode(w, serialization.Header{
		ModelType: ModelType,
		Flags:     flags,
		Model:     doc,
	}, tensors)
}

// SaveFile writes the network to path.
func (n *Network) SaveFile(path string) error {
	//nolint:gosec // G304: model paths come from the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := n.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads a network written by Save.
func Load(r io.Reader) (*Network, error) {
	f, err := serialization.Decode(r)
	if err != nil {
		return nil, err
	}
	return fromModel(f)
}

// LoadFile reads a network from path.
func LoadFile(path string) (*Network, error) {
	f, err := serialization.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fromModel(f)
}

func fromModel(f *serialization.Model) (*Network, error) {
	if f.Header.ModelType != ModelType {
		return nil, fmt.Errorf("network: unexpected model type %q", f.Header.ModelType)
	}
	var m model
	if err := json.Unmarshal(f.Header.Model, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}

	opts := make([]optim.Optimizer, len(m.Optimizers))
	for i, e := range m.Optimizers {
		opt, err := optim.FromConfig(e.Name, e.Config)
		if err != nil {
			return nil, err
		}
		opts[i] = opt
	}
	pick := func(i int) (optim.Optimizer, error) {
		if i == -1 {
			return nil, nil
		}
		if i < 0 || i >= len(opts) {
			return nil, fmt.Errorf("network: optimizer index %d out of range", i)
		}
		return opts[i], nil
	}

	loss, err := nn.ParseLoss(m.Loss)
	if err != nil {
		return nil, err
	}
	def, err := pick(m.Optimizer)
	if err != nil {
		return nil, err
	}
	n := New(Config{LearningRate: m.LearningRate, Loss: loss, Optimizer: def})

	for i, e := range m.Layers {
		opt, err := pick(e.Optimizer)
		if err != nil {
			return nil, err
		}
		l, err := nn.Build(e.Spec, opt, nil)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := loadParameters(f, i, e, l); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		if err := n.Add(l); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func loadParameters(f *serialization.Model, i int, e layerEntry, l nn.Layer) error {
	blocks := make([]*optim.Block, e.Params)
	for j := range blocks {
		var fields [4][]float64
		for k, field := range blockFields {
			t, err := f.Tensor(paramName(i, j, field))
			if err != nil {
				return err
			}
			fields[k] = t.Data
		}
		blocks[j] = &optim.Block{Values: fields[0], Grads: fields[1], Moments: fields[2], Variances: fields[3]}
	}
	if err := l.SetParameters(blocks); err != nil {
		return err
	}

	if e.State == 0 {
		return nil
	}
	s, ok := l.(nn.Stateful)
	if !ok {
		return fmt.Errorf("network: %s layer has no state", e.Spec.Kind)
	}
	state := make([][]float64, e.State)
	for k := range state {
		t, err := f.Tensor(stateName(i, k))
		if err != nil {
			return err
		}
		state[k] = t.Data
	}
	return s.SetState(state)
}
