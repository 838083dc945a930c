// Package main provides the synapse CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/born-ml/synapse/internal/activation"
	"github.com/born-ml/synapse/internal/backend"
	"github.com/born-ml/synapse/internal/backend/device"
	"github.com/born-ml/synapse/internal/network"
	"github.com/born-ml/synapse/internal/nn"
	"github.com/born-ml/synapse/internal/optim"
	"github.com/born-ml/synapse/internal/serialization"
	"github.com/born-ml/synapse/internal/tuner"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "version":
		fmt.Printf("synapse %s (.syn format v%d)\n", serialization.Version, serialization.FormatVersion)
	case "device":
		runDevice(args)
	case "xor":
		runXOR(args)
	case "tune":
		runTune(args)
	case "pool":
		runPool(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("synapse - feed-forward neural network engine")
	fmt.Printf("Version: %s\n\n", serialization.Version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  device     Show the selected matrix backend")
	fmt.Println("  xor        Train a 2-4-1 network on XOR")
	fmt.Println("  tune       Recommend a batch size for a network shape")
	fmt.Println("  pool       Exercise the backend memory pool")
}

// selectBackend pins the backend when -backend is given.
func selectBackend(name string) backend.Ops {
	if name == "" {
		return backend.Default()
	}
	kind, err := device.ParseKind(name)
	if err != nil {
		log.Fatalf("Invalid backend: %v", err)
	}
	ops, err := backend.Open(kind)
	if err != nil {
		log.Fatalf("Failed to open %s backend: %v", kind, err)
	}
	backend.SetDefault(ops)
	return ops
}

func runDevice(args []string) {
	fs := flag.NewFlagSet("device", flag.ExitOnError)
	name := fs.String("backend", "", "Backend to open (cpu, webgpu, wgpunative); empty probes")
	_ = fs.Parse(args)

	ops := selectBackend(*name)
	fmt.Println(ops.Info())
}

func runXOR(args []string) {
	fs := flag.NewFlagSet("xor", flag.ExitOnError)
	epochs := fs.Int("epochs", 2000, "Training epochs")
	lr := fs.Float64("lr", 0.05, "Learning rate for Adam")
	seed := fs.Int64("seed", 1, "Random seed")
	save := fs.String("save", "", "Write the trained model to this .syn file")
	name := fs.String("backend", "", "Backend (cpu, webgpu, wgpunative)")
	_ = fs.Parse(args)

	selectBackend(*name)
	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // reproducible demo
	adam := optim.NewAdam(optim.AdamConfig{})
	net := network.New(network.Config{LearningRate: *lr, Optimizer: adam})

	hidden, err := nn.NewDense(2, 4, activation.NameReLU, adam, rng)
	if err != nil {
		log.Fatalf("Failed to create hidden layer: %v", err)
	}
	output, err := nn.NewDense(4, 1, activation.NameSigmoid, adam, rng)
	if err != nil {
		log.Fatalf("Failed to create output layer: %v", err)
	}
	for _, l := range []nn.Layer{hidden, output} {
		if err := net.Add(l); err != nil {
			log.Fatalf("Failed to add layer: %v", err)
		}
	}

	inputs := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	targets := [][]float64{{0}, {1}, {1}, {0}}
	for epoch := 1; epoch <= *epochs; epoch++ {
		loss, err := net.TrainBatch(inputs, targets)
		if err != nil {
			log.Fatalf("Training failed: %v", err)
		}
		if epoch%(max(*epochs/10, 1)) == 0 {
			fmt.Printf("epoch %5d  loss %.6f\n", epoch, loss)
		}
	}

	for _, in := range inputs {
		out, err := net.Predict(in)
		if err != nil {
			log.Fatalf("Prediction failed: %v", err)
		}
		fmt.Printf("%v -> %.4f\n", in, out[0])
	}

	if *save != "" {
		if err := net.SaveFile(*save); err != nil {
			log.Fatalf("Failed to save model: %v", err)
		}
		fmt.Printf("saved %s\n", *save)
	}
}

func runTune(args []string) {
	fs := flag.NewFlagSet("tune", flag.ExitOnError)
	input := fs.Int("input", 784, "Input size")
	hidden := fs.Int("hidden", 128, "Hidden size")
	output := fs.Int("output", 10, "Output size")
	iterations := fs.Int("iterations", 10, "Timed iterations per batch size")
	name := fs.String("backend", "", "Backend (cpu, webgpu, wgpunative)")
	_ = fs.Parse(args)

	ops := selectBackend(*name)
	fmt.Printf("tuning %d-%d-%d on %s\n", *input, *hidden, *output, ops.Info().Name)
	rec, err := tuner.New(ops, tuner.Config{Iterations: *iterations}).Tune(context.Background(), *input, *hidden, *output)
	if err != nil {
		log.Fatalf("Tuning failed: %v", err)
	}
	for _, r := range rec.Results {
		fmt.Println(r)
	}
	fmt.Printf("optimal %d, conservative %d, aggressive %d\n", rec.Optimal, rec.Conservative, rec.Aggressive)
}

func runPool(args []string) {
	fs := flag.NewFlagSet("pool", flag.ExitOnError)
	count := fs.Int("count", 10, "Buffers to allocate and free")
	size := fs.Int("size", 4096, "Buffer length in float64s")
	name := fs.String("backend", "", "Backend (cpu, webgpu, wgpunative)")
	_ = fs.Parse(args)

	ops := selectBackend(*name)
	for range *count {
		buf := ops.Alloc(*size)
		ops.Free(buf)
	}
	fmt.Println(ops.PoolStats())
	ops.OptimizePool()
	fmt.Println(ops.PoolStats())
}
