package fs

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
)

func openTestState(t *testing.T) (*DeploymentStateStore, *bytes.Buffer) {
	t.Helper()
	var log bytes.Buffer
	path := filepath.Join(t.TempDir(), "local", "pending.json")
	s, err := OpenDeploymentState(path, models.NewDeploymentRecord("local", "gen-1"), WithChangeLog(&log))
	require.NoError(t, err)
	return s, &log
}

func confirmed(gas uint64) *models.TransactionOutcome {
	return &models.TransactionOutcome{Hash: "0xabc", Status: models.TransactionStatusConfirmed, GasUsed: gas}
}

func TestDeploymentState_EagerCreate(t *testing.T) {
	s, log := openTestState(t)

	assert.FileExists(t, s.Path())
	assert.Equal(t, 1, s.Writes())
	assert.Equal(t, "generation=gen-1\n", log.String())

	loaded, err := LoadDeploymentRecord(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "gen-1", loaded.Generation)
	assert.Equal(t, "local", loaded.Instance)
	assert.False(t, loaded.Completed)
}

func TestDeploymentState_UnchangedValueSkipsIO(t *testing.T) {
	s, log := openTestState(t)

	artifact := &models.ArtifactRecord{
		Address:      "0x0000000000000000000000000000000000000001",
		BytecodeHash: "0x01",
		IsModule:     true,
		Transactions: map[string]*models.TransactionOutcome{models.TxDeploy: confirmed(21000)},
	}
	require.NoError(t, s.SetArtifact("src/A.sol:A", artifact))
	require.NoError(t, s.Set(KeyPrevious, "gen-0"))
	require.NoError(t, s.SetCompleted(false))
	writes := s.Writes()
	logged := log.String()

	info, err := os.Stat(s.Path())
	require.NoError(t, err)

	// Same values again
	require.NoError(t, s.SetArtifact("src/A.sol:A", artifact.Clone()))
	require.NoError(t, s.Set(KeyPrevious, "gen-0"))
	require.NoError(t, s.SetCompleted(false))
	require.NoError(t, s.AddGasUsed(0))
	require.NoError(t, s.RecordTransaction("src/A.sol:A", models.TxDeploy, confirmed(21000)))

	assert.Equal(t, writes, s.Writes())
	assert.Equal(t, logged, log.String())

	after, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), after.ModTime())
}

func TestDeploymentState_ChangeLogLines(t *testing.T) {
	s, log := openTestState(t)

	require.NoError(t, s.Set(KeyPrevious, "gen-0"))
	require.NoError(t, s.SetArtifact("src/A.sol:A", &models.ArtifactRecord{Address: "0xA"}))
	require.NoError(t, s.RecordTransaction("src/A.sol:A", models.TxDeploy, confirmed(100)))
	require.NoError(t, s.AddGasUsed(100))
	require.NoError(t, s.AddGasUsed(50))
	require.NoError(t, s.SetCompleted(true))

	lines := strings.Split(strings.TrimSpace(log.String()), "\n")
	assert.Equal(t, []string{
		"generation=gen-1",
		"previous=gen-0",
		"contracts.src/A.sol:A.address=0xA",
		"contracts.src/A.sol:A.transactions.deploy=CONFIRMED",
		"gasUsed=100",
		"gasUsed=150",
		"completed=true",
	}, lines)
	assert.Equal(t, 7, s.Writes())
}

func TestDeploymentState_ChangeLogNamesChangedField(t *testing.T) {
	s, log := openTestState(t)

	proxy := &models.ArtifactRecord{Address: "0xP", IsProxy: true, Implementation: "0xR1"}
	require.NoError(t, s.SetArtifact("src/Proxy.sol:Proxy", proxy))

	upgraded := proxy.Clone()
	upgraded.Implementation = "0xR2"
	require.NoError(t, s.SetArtifact("src/Proxy.sol:Proxy", upgraded))

	flagged := upgraded.Clone()
	flagged.IsRouter = true
	require.NoError(t, s.SetArtifact("src/Proxy.sol:Proxy", flagged))

	lines := strings.Split(strings.TrimSpace(log.String()), "\n")
	assert.Equal(t, []string{
		"generation=gen-1",
		"contracts.src/Proxy.sol:Proxy.address=0xP",
		"contracts.src/Proxy.sol:Proxy.implementation=0xR2",
		"contracts.src/Proxy.sol:Proxy=updated",
	}, lines)
}

func TestDeploymentState_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local", "pending.json")
	s, err := OpenDeploymentState(path, models.NewDeploymentRecord("local", "gen-1"))
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.FileExists(t, ChangeLogPath(path))
}

func TestDeploymentState_DocumentIsPrettyPrinted(t *testing.T) {
	s, _ := openTestState(t)
	require.NoError(t, s.AddGasUsed(42))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"generation\": \"gen-1\""))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, 42, raw["gasUsed"])

	// No temporary file left behind
	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDeploymentState_Resume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	first, err := OpenDeploymentState(path, models.NewDeploymentRecord("local", "gen-1"), WithChangeLog(&bytes.Buffer{}))
	require.NoError(t, err)
	require.NoError(t, first.SetArtifact("src/A.sol:A", &models.ArtifactRecord{Address: "0xA"}))

	// A new initial record is ignored when the document exists
	resumed, err := OpenDeploymentState(path, models.NewDeploymentRecord("local", "gen-2"), WithChangeLog(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, "gen-1", resumed.Record().Generation)
	assert.Equal(t, 0, resumed.Writes())

	a, ok := resumed.Record().Artifact("src/A.sol:A")
	require.True(t, ok)
	assert.Equal(t, "0xA", a.Address)
}

func TestDeploymentState_MissingWithoutInitial(t *testing.T) {
	_, err := OpenDeploymentState(filepath.Join(t.TempDir(), "pending.json"), nil)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeploymentState_RecordIsACopy(t *testing.T) {
	s, _ := openTestState(t)
	require.NoError(t, s.SetArtifact("src/A.sol:A", &models.ArtifactRecord{Address: "0xA"}))

	rec := s.Record()
	rec.Contracts["src/A.sol:A"].Address = "0xB"
	rec.GasUsed = 99

	a, _ := s.Record().Artifact("src/A.sol:A")
	assert.Equal(t, "0xA", a.Address)
	assert.Zero(t, s.Record().GasUsed)
}

func TestDeploymentState_ConcurrentWriters(t *testing.T) {
	s, _ := openTestState(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fqn := filepath.Join("src", string(rune('A'+i))+".sol") + ":M"
			assert.NoError(t, s.SetArtifact(fqn, &models.ArtifactRecord{Address: "0x1"}))
			assert.NoError(t, s.AddGasUsed(10))
		}(i)
	}
	wg.Wait()

	loaded, err := LoadDeploymentRecord(s.Path())
	require.NoError(t, err)
	assert.Len(t, loaded.Contracts, 20)
	assert.Equal(t, uint64(200), loaded.GasUsed)
}

func TestDeploymentState_UnknownProperty(t *testing.T) {
	s, _ := openTestState(t)
	assert.Error(t, s.Set("nope", "x"))
}

func TestDeploymentState_DefaultChangeLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	s, err := OpenDeploymentState(path, models.NewDeploymentRecord("local", "gen-1"))
	require.NoError(t, err)
	require.NoError(t, s.AddGasUsed(7))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(ChangeLogPath(path))
	require.NoError(t, err)
	assert.Equal(t, "generation=gen-1\ngasUsed=7\n", string(data))
	assert.Equal(t, filepath.Join(filepath.Dir(path), "pending.changes.log"), ChangeLogPath(path))
}
