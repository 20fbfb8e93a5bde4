package orderproof

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/vocdoni/z-orders/circuits"
	"github.com/vocdoni/z-orders/log"
	"github.com/vocdoni/z-orders/types"
	"github.com/vocdoni/z-orders/validator"
)

// CircuitName is the name the order circuit artifact hashes are stored
// under.
const CircuitName = "orderproof"

// Prover holds the compiled order circuit and its Groth16 keys.
type Prover struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// CompileAndSetup compiles the order circuit and runs a fresh Groth16 setup.
// The resulting keys are only fit for a single party deployment.
func CompileAndSetup() (*Prover, error) {
	startTime := time.Now()
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
	if err != nil {
		return nil, fmt.Errorf("failed to compile order circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("failed to setup order circuit: %w", err)
	}
	log.Infow("order circuit ready",
		"constraints", ccs.GetNbConstraints(),
		"took", time.Since(startTime).String())
	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

// NewProver decodes a prover from loaded circuit artifacts.
func NewProver(ca *circuits.CircuitArtifacts) (*Prover, error) {
	if ca.CircuitDefinition == nil || ca.ProvingKey == nil || ca.VerifyingKey == nil {
		return nil, fmt.Errorf("incomplete order circuit artifacts")
	}
	ccs := groth16.NewCS(ecc.BN254)
	if _, err := ccs.ReadFrom(bytes.NewReader(ca.CircuitDefinition.Content)); err != nil {
		return nil, fmt.Errorf("failed to read order circuit definition: %w", err)
	}
	pk := groth16.NewProvingKey(ecc.BN254)
	if _, err := pk.ReadFrom(bytes.NewReader(ca.ProvingKey.Content)); err != nil {
		return nil, fmt.Errorf("failed to read order proving key: %w", err)
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(ca.VerifyingKey.Content)); err != nil {
		return nil, fmt.Errorf("failed to read order verifying key: %w", err)
	}
	return &Prover{ccs: ccs, pk: pk, vk: vk}, nil
}

// Load builds the prover from the artifacts with the given hashes. Missing
// artifacts are downloaded from baseURL when it is set.
func Load(ctx context.Context, hashes [3]types.HexBytes, baseURL string) (*Prover, *circuits.CircuitArtifacts, error) {
	ca, err := circuits.NewCircuitArtifacts(hashes, baseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := ca.LoadAll(ctx); err != nil {
		return nil, nil, fmt.Errorf("cannot load order circuit artifacts: %w", err)
	}
	p, err := NewProver(ca)
	if err != nil {
		return nil, nil, err
	}
	return p, ca, nil
}

// LoadOrSetup loads the prover as Load does. If any hash is missing or its
// artifact can not be loaded, it compiles and sets up a new circuit and
// stores its artifacts. The caller should persist the hashes of the
// returned artifacts to reuse the keys on the next run.
func LoadOrSetup(ctx context.Context, hashes [3]types.HexBytes, baseURL string) (*Prover, *circuits.CircuitArtifacts, error) {
	if len(hashes[0]) > 0 && len(hashes[1]) > 0 && len(hashes[2]) > 0 {
		p, ca, err := Load(ctx, hashes, baseURL)
		if err == nil {
			return p, ca, nil
		}
		log.Warnw("running a new order circuit setup", "error", err.Error())
	}
	p, err := CompileAndSetup()
	if err != nil {
		return nil, nil, err
	}
	ca, err := p.Artifacts()
	if err != nil {
		return nil, nil, err
	}
	return p, ca, nil
}

// Artifacts serializes the circuit definition and keys and stores them in
// the artifact cache.
func (p *Prover) Artifacts() (*circuits.CircuitArtifacts, error) {
	store := func(w io.WriterTo, name string) (*circuits.Artifact, error) {
		var buf bytes.Buffer
		if _, err := w.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		a, err := circuits.StoreArtifact(buf.Bytes())
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", name, err)
		}
		return a, nil
	}
	ca := &circuits.CircuitArtifacts{}
	var err error
	if ca.CircuitDefinition, err = store(p.ccs, "circuit definition"); err != nil {
		return nil, err
	}
	if ca.ProvingKey, err = store(p.pk, "proving key"); err != nil {
		return nil, err
	}
	if ca.VerifyingKey, err = store(p.vk, "verifying key"); err != nil {
		return nil, err
	}
	return ca, nil
}

// Prove generates a proof that out is the output of validating in. It
// returns ErrInputTooLarge if the inputs do not fit the circuit.
func (p *Prover) Prove(in *validator.Inputs, out *validator.Output) (groth16.Proof, error) {
	assignment, err := Assignment(in, out)
	if err != nil {
		return nil, err
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("failed to create witness: %w", err)
	}
	proof, err := groth16.Prove(p.ccs, p.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("failed to prove order: %w", err)
	}
	return proof, nil
}

// Verify checks the proof against an output bundle.
func (p *Prover) Verify(proof groth16.Proof, bundle []byte) error {
	assignment, err := PublicAssignment(bundle)
	if err != nil {
		return err
	}
	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("failed to create public witness: %w", err)
	}
	return groth16.Verify(proof, p.vk, publicWitness)
}

// EncodeProof serializes a proof in its compressed form.
func EncodeProof(proof groth16.Proof) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode proof: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeProof parses a proof encoded with EncodeProof.
func DecodeProof(data []byte) (groth16.Proof, error) {
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to decode proof: %w", err)
	}
	return proof, nil
}
