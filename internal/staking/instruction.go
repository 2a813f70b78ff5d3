package staking

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// Opcode selects the operation an instruction runs.
type Opcode uint8

// Operation codes.
const (
	OpInitialize Opcode = iota
	OpCreateUser
	OpCreatePackage
	OpStake
	OpAutoReleaseRewards
	OpExitPackage
	OpUpdateReferralRewards
)

var opcodeNames = [...]string{
	OpInitialize:            "Initialize",
	OpCreateUser:            "CreateUser",
	OpCreatePackage:         "CreatePackage",
	OpStake:                 "Stake",
	OpAutoReleaseRewards:    "AutoReleaseRewards",
	OpExitPackage:           "ExitPackage",
	OpUpdateReferralRewards: "UpdateReferralRewards",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(o))
}

// Instruction is one operation with its positional arguments. Only the
// fields of Op are meaningful.
type Instruction struct {
	Op Opcode

	Params        InitParams        // Initialize
	Referrer      *solana.PublicKey // CreateUser
	Amount        uint64            // CreatePackage, Stake
	PackageID     solana.PublicKey  // CreatePackage
	NewReferrals  uint32            // UpdateReferralRewards
	ReferralStake uint64            // UpdateReferralRewards
}

func InitializeIx(params InitParams) Instruction {
	return Instruction{Op: OpInitialize, Params: params}
}

func CreateUserIx(referrer *solana.PublicKey) Instruction {
	return Instruction{Op: OpCreateUser, Referrer: referrer}
}

func CreatePackageIx(id solana.PublicKey, amount uint64) Instruction {
	return Instruction{Op: OpCreatePackage, PackageID: id, Amount: amount}
}

func StakeIx(amount uint64) Instruction {
	return Instruction{Op: OpStake, Amount: amount}
}

func AutoReleaseIx() Instruction {
	return Instruction{Op: OpAutoReleaseRewards}
}

func ExitPackageIx() Instruction {
	return Instruction{Op: OpExitPackage}
}

func UpdateReferralIx(newRefs uint32, stakeAmount uint64) Instruction {
	return Instruction{Op: OpUpdateReferralRewards, NewReferrals: newRefs, ReferralStake: stakeAmount}
}

// MarshalBinary encodes the instruction as its opcode byte followed by the
// Borsh-encoded arguments.
func (ix Instruction) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint8(uint8(ix.Op)); err != nil {
		return nil, err
	}

	var err error
	switch ix.Op {
	case OpInitialize:
		p := ix.Params
		for _, v := range []uint64{p.DailyRate, p.MaxMultiplier, p.MinStake, p.DirectBonus, p.IndirectBonus} {
			if err = enc.WriteUint64(v, binary.LittleEndian); err != nil {
				return nil, err
			}
		}
		for _, k := range []solana.PublicKey{p.Admin, p.StakeMint, p.RewardMint, p.MemeMint} {
			if err = enc.WriteBytes(k[:], false); err != nil {
				return nil, err
			}
		}
	case OpCreateUser:
		if err = enc.WriteBool(ix.Referrer != nil); err != nil {
			return nil, err
		}
		if ix.Referrer != nil {
			err = enc.WriteBytes(ix.Referrer[:], false)
		}
	case OpCreatePackage:
		if err = enc.WriteUint64(ix.Amount, binary.LittleEndian); err != nil {
			return nil, err
		}
		err = enc.WriteBytes(ix.PackageID[:], false)
	case OpStake:
		err = enc.WriteUint64(ix.Amount, binary.LittleEndian)
	case OpAutoReleaseRewards, OpExitPackage:
	case OpUpdateReferralRewards:
		if err = enc.WriteUint32(ix.NewReferrals, binary.LittleEndian); err != nil {
			return nil, err
		}
		err = enc.WriteUint64(ix.ReferralStake, binary.LittleEndian)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownInstruction, uint8(ix.Op))
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeInstruction parses the output of MarshalBinary.
func DecodeInstruction(data []byte) (Instruction, error) {
	dec := bin.NewBorshDecoder(data)

	op, err := dec.ReadUint8()
	if err != nil {
		return Instruction{}, fmt.Errorf("failed to read opcode: %w", err)
	}
	ix := Instruction{Op: Opcode(op)}

	readKey := func() (solana.PublicKey, error) {
		b, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return solana.PublicKey{}, err
		}
		return solana.PublicKeyFromBytes(b), nil
	}

	switch ix.Op {
	case OpInitialize:
		vals := []*uint64{&ix.Params.DailyRate, &ix.Params.MaxMultiplier, &ix.Params.MinStake, &ix.Params.DirectBonus, &ix.Params.IndirectBonus}
		for _, v := range vals {
			if *v, err = dec.ReadUint64(binary.LittleEndian); err != nil {
				return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
			}
		}
		keys := []*solana.PublicKey{&ix.Params.Admin, &ix.Params.StakeMint, &ix.Params.RewardMint, &ix.Params.MemeMint}
		for _, k := range keys {
			if *k, err = readKey(); err != nil {
				return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
			}
		}
	case OpCreateUser:
		present, err := dec.ReadBool()
		if err != nil {
			return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
		}
		if present {
			ref, err := readKey()
			if err != nil {
				return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
			}
			ix.Referrer = &ref
		}
	case OpCreatePackage:
		if ix.Amount, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
		}
		if ix.PackageID, err = readKey(); err != nil {
			return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
		}
	case OpStake:
		if ix.Amount, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
		}
	case OpAutoReleaseRewards, OpExitPackage:
	case OpUpdateReferralRewards:
		if ix.NewReferrals, err = dec.ReadUint32(binary.LittleEndian); err != nil {
			return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
		}
		if ix.ReferralStake, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return Instruction{}, fmt.Errorf("failed to read %s args: %w", ix.Op, err)
		}
	default:
		return Instruction{}, fmt.Errorf("%w: %d", ErrUnknownInstruction, op)
	}

	if dec.Remaining() > 0 {
		return Instruction{}, fmt.Errorf("%s: %w", ix.Op, ErrTrailingData)
	}
	return ix, nil
}
