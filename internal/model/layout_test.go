package model

import (
	"encoding/binary"
	"testing"

	solana "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func key(b byte) solana.PublicKey {
	var k solana.PublicKey
	for i := range k {
		k[i] = b
	}
	return k
}

func TestRecordSizesFitAccountSpace(t *testing.T) {
	poolData, err := EncodePool(&Pool{})
	require.NoError(t, err)
	userData, err := EncodeUser(&User{})
	require.NoError(t, err)
	pkgData, err := EncodePackage(&Package{})
	require.NoError(t, err)

	assert.Len(t, poolData, PoolSize)
	assert.Len(t, userData, UserSize)
	assert.Len(t, pkgData, PackageSize)

	for _, size := range []int{PoolSize, UserSize, PackageSize} {
		assert.LessOrEqual(t, size, AccountSpace)
	}
}

func TestPackageLayoutIsLittleEndian(t *testing.T) {
	pkg := &Package{
		ID:           key(1),
		Owner:        key(2),
		Amount:       1000,
		CurrentTotal: 1500,
		MaxTotal:     1500,
		CreatedAt:    86400,
		Status:       PackageCompleted,
	}
	data, err := EncodePackage(pkg)
	require.NoError(t, err)

	body := data[DiscriminatorSize:]
	assert.Equal(t, key(1).Bytes(), body[0:32])
	assert.Equal(t, key(2).Bytes(), body[32:64])
	assert.Equal(t, uint64(1000), binary.LittleEndian.Uint64(body[64:72]))
	assert.Equal(t, uint64(1500), binary.LittleEndian.Uint64(body[88:96]))
	assert.Equal(t, uint64(86400), binary.LittleEndian.Uint64(body[104:112]))
	assert.Equal(t, byte(1), body[112], "status is a single discriminant byte")
}

func TestDecodeRejectsForeignRecord(t *testing.T) {
	data, err := EncodeUser(&User{User: key(9)})
	require.NoError(t, err)

	_, err = DecodePackage(data)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)
	_, err = DecodePool(data)
	assert.ErrorIs(t, err, ErrDiscriminatorMismatch)
}

func TestDecodeRejectsUnknownTags(t *testing.T) {
	data, err := EncodePackage(&Package{Status: PackageActive})
	require.NoError(t, err)
	data[PackageSize-1] = 7
	_, err = DecodePackage(data)
	assert.ErrorIs(t, err, ErrUnknownTag)

	data, err = EncodeUser(&User{Role: RoleAdmin})
	require.NoError(t, err)
	data[UserSize-1] = 4
	_, err = DecodeUser(data)
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestDecodeTruncated(t *testing.T) {
	data, err := EncodePool(&Pool{TotalStaked: 5})
	require.NoError(t, err)

	_, err = DecodePool(data[:PoolSize-3])
	assert.Error(t, err)
}

func TestEnumNames(t *testing.T) {
	assert.Equal(t, "Active", PackageActive.String())
	assert.Equal(t, "Withdrawn", PackageWithdrawn.String())
	assert.Equal(t, "Unknown", PackageStatus(9).String())
	assert.Equal(t, "TeamLeader", RoleTeamLeader.String())
	assert.Equal(t, "Unknown", UserRole(4).String())
}

func drawKey(t *rapid.T, label string) solana.PublicKey {
	return solana.PublicKeyFromBytes(rapid.SliceOfN(rapid.Byte(), 32, 32).Draw(t, label))
}

// TestUserRecordRoundTripProperty checks that any user record survives the
// persisted layout unchanged.
func TestUserRecordRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u := &User{
			User:              drawKey(t, "user"),
			Referrer:          drawKey(t, "referrer"),
			StakedAmount:      rapid.Uint64().Draw(t, "staked"),
			RewardsClaimed:    rapid.Uint64().Draw(t, "claimed"),
			LastClaimTime:     rapid.Int64().Draw(t, "lastClaim"),
			DirectReferrals:   rapid.Uint32().Draw(t, "direct"),
			IndirectReferrals: rapid.Uint32().Draw(t, "indirect"),
			Level:             rapid.Uint8Range(0, 5).Draw(t, "level"),
			TeamPerformance:   rapid.Uint64().Draw(t, "team"),
			IsActive:          rapid.Bool().Draw(t, "active"),
			PackagesCount:     rapid.Uint64().Draw(t, "packages"),
			Role:              UserRole(rapid.Uint8Range(0, 3).Draw(t, "role")),
		}

		data, err := EncodeUser(u)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeUser(data)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if *got != *u {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, u)
		}
	})
}
