package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
)

// Record sizes. Every record body is preceded by an 8-byte discriminator
// and must fit in the 8+200 byte account space.
const (
	DiscriminatorSize = 8
	AccountSpace      = DiscriminatorSize + 200

	PoolSize    = DiscriminatorSize + 4*32 + 6*8 + 4 + 8
	UserSize    = DiscriminatorSize + 2*32 + 2*8 + 8 + 2*4 + 1 + 8 + 1 + 8 + 1
	PackageSize = DiscriminatorSize + 2*32 + 5*8 + 8 + 1
)

// Layout errors.
var (
	ErrDiscriminatorMismatch = errors.New("account discriminator mismatch")
	ErrUnknownTag            = errors.New("unknown enum tag")
)

var (
	poolDiscriminator    = accountDiscriminator("StakingPool")
	userDiscriminator    = accountDiscriminator("UserInfo")
	packageDiscriminator = accountDiscriminator("StakingPackage")
)

// accountDiscriminator follows the Anchor convention: the first eight bytes
// of sha256("account:<Name>").
func accountDiscriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [DiscriminatorSize]byte
	copy(d[:], sum[:DiscriminatorSize])
	return d
}

// fieldWriter writes little-endian Borsh fields and keeps the first error.
type fieldWriter struct {
	enc *bin.Encoder
	err error
}

func (w *fieldWriter) key(k solana.PublicKey) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(k[:], false)
	}
}

func (w *fieldWriter) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LittleEndian)
	}
}

func (w *fieldWriter) i64(v int64) {
	if w.err == nil {
		w.err = w.enc.WriteInt64(v, binary.LittleEndian)
	}
}

func (w *fieldWriter) u32(v uint32) {
	if w.err == nil {
		w.err = w.enc.WriteUint32(v, binary.LittleEndian)
	}
}

func (w *fieldWriter) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *fieldWriter) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

// fieldReader is the decoding counterpart of fieldWriter.
type fieldReader struct {
	dec *bin.Decoder
	err error
}

func (r *fieldReader) key() solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.err = err
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *fieldReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *fieldReader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *fieldReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(binary.LittleEndian)
	r.err = err
	return v
}

func (r *fieldReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *fieldReader) boolean() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.ReadBool()
	r.err = err
	return v
}

// MarshalWithEncoder writes the pool body in declaration order.
func (p Pool) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &fieldWriter{enc: enc}
	w.key(p.Admin)
	w.key(p.StakeMint)
	w.key(p.RewardMint)
	w.key(p.MemeMint)
	w.u64(p.TotalStaked)
	w.u64(p.DailyRate)
	w.u64(p.MaxMultiplier)
	w.u64(p.MinStake)
	w.u64(p.DirectBonus)
	w.u64(p.IndirectBonus)
	w.u32(p.TotalUsers)
	w.u64(p.GlobalRewardPool)
	return w.err
}

// UnmarshalWithDecoder reads the pool body in declaration order.
func (p *Pool) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &fieldReader{dec: dec}
	p.Admin = r.key()
	p.StakeMint = r.key()
	p.RewardMint = r.key()
	p.MemeMint = r.key()
	p.TotalStaked = r.u64()
	p.DailyRate = r.u64()
	p.MaxMultiplier = r.u64()
	p.MinStake = r.u64()
	p.DirectBonus = r.u64()
	p.IndirectBonus = r.u64()
	p.TotalUsers = r.u32()
	p.GlobalRewardPool = r.u64()
	return r.err
}

// MarshalWithEncoder writes the user body in declaration order.
func (u User) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &fieldWriter{enc: enc}
	w.key(u.User)
	w.key(u.Referrer)
	w.u64(u.StakedAmount)
	w.u64(u.RewardsClaimed)
	w.i64(u.LastClaimTime)
	w.u32(u.DirectReferrals)
	w.u32(u.IndirectReferrals)
	w.u8(u.Level)
	w.u64(u.TeamPerformance)
	w.boolean(u.IsActive)
	w.u64(u.PackagesCount)
	w.u8(uint8(u.Role))
	return w.err
}

// UnmarshalWithDecoder reads the user body in declaration order.
func (u *User) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &fieldReader{dec: dec}
	u.User = r.key()
	u.Referrer = r.key()
	u.StakedAmount = r.u64()
	u.RewardsClaimed = r.u64()
	u.LastClaimTime = r.i64()
	u.DirectReferrals = r.u32()
	u.IndirectReferrals = r.u32()
	u.Level = r.u8()
	u.TeamPerformance = r.u64()
	u.IsActive = r.boolean()
	u.PackagesCount = r.u64()
	u.Role = UserRole(r.u8())
	if r.err != nil {
		return r.err
	}
	if !u.Role.Valid() {
		return fmt.Errorf("user role %d: %w", u.Role, ErrUnknownTag)
	}
	return nil
}

// MarshalWithEncoder writes the package body in declaration order.
func (p Package) MarshalWithEncoder(enc *bin.Encoder) error {
	w := &fieldWriter{enc: enc}
	w.key(p.ID)
	w.key(p.Owner)
	w.u64(p.Amount)
	w.u64(p.BaseRelease)
	w.u64(p.AcceleratedRelease)
	w.u64(p.CurrentTotal)
	w.u64(p.MaxTotal)
	w.i64(p.CreatedAt)
	w.u8(uint8(p.Status))
	return w.err
}

// UnmarshalWithDecoder reads the package body in declaration order.
func (p *Package) UnmarshalWithDecoder(dec *bin.Decoder) error {
	r := &fieldReader{dec: dec}
	p.ID = r.key()
	p.Owner = r.key()
	p.Amount = r.u64()
	p.BaseRelease = r.u64()
	p.AcceleratedRelease = r.u64()
	p.CurrentTotal = r.u64()
	p.MaxTotal = r.u64()
	p.CreatedAt = r.i64()
	p.Status = PackageStatus(r.u8())
	if r.err != nil {
		return r.err
	}
	if !p.Status.Valid() {
		return fmt.Errorf("package status %d: %w", p.Status, ErrUnknownTag)
	}
	return nil
}

type marshaler interface {
	MarshalWithEncoder(enc *bin.Encoder) error
}

type unmarshaler interface {
	UnmarshalWithDecoder(dec *bin.Decoder) error
}

func encodeRecord(disc [DiscriminatorSize]byte, v marshaler) ([]byte, error) {
	var buf bytes.Buffer
	enc := bin.NewBorshEncoder(&buf)
	if err := enc.WriteBytes(disc[:], false); err != nil {
		return nil, err
	}
	if err := v.MarshalWithEncoder(enc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(disc [DiscriminatorSize]byte, data []byte, v unmarshaler) error {
	dec := bin.NewBorshDecoder(data)
	got, err := dec.ReadNBytes(DiscriminatorSize)
	if err != nil {
		return fmt.Errorf("failed to read discriminator: %w", err)
	}
	if !bytes.Equal(got, disc[:]) {
		return ErrDiscriminatorMismatch
	}
	return v.UnmarshalWithDecoder(dec)
}

// EncodePool serializes a pool record.
func EncodePool(p *Pool) ([]byte, error) {
	return encodeRecord(poolDiscriminator, p)
}

// DecodePool deserializes a pool record.
func DecodePool(data []byte) (*Pool, error) {
	var p Pool
	if err := decodeRecord(poolDiscriminator, data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pool: %w", err)
	}
	return &p, nil
}

// EncodeUser serializes a user record.
func EncodeUser(u *User) ([]byte, error) {
	return encodeRecord(userDiscriminator, u)
}

// DecodeUser deserializes a user record.
func DecodeUser(data []byte) (*User, error) {
	var u User
	if err := decodeRecord(userDiscriminator, data, &u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &u, nil
}

// EncodePackage serializes a package record.
func EncodePackage(p *Package) ([]byte, error) {
	return encodeRecord(packageDiscriminator, p)
}

// DecodePackage deserializes a package record.
func DecodePackage(data []byte) (*Package, error) {
	var p Package
	if err := decodeRecord(packageDiscriminator, data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode package: %w", err)
	}
	return &p, nil
}
