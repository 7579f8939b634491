package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/trebuchet-org/treb-router/internal/domain"
	"github.com/trebuchet-org/treb-router/internal/domain/config"
	"github.com/trebuchet-org/treb-router/internal/domain/models"
	"github.com/trebuchet-org/treb-router/internal/domain/router"
)

// Build stages reported to the progress sink
const (
	StageVerify     = "verify"
	StagePlan       = "plan"
	StageModules    = "modules"
	StageRouter     = "router"
	StageEntryPoint = "entry_point"
	StageFinalize   = "finalize"
)

// BuildRouter sequences a full build: verification, module deployment, router
// generation, entry-point upgrade and finalization.
type BuildRouter struct {
	cfg          *config.RuntimeConfig
	declarations DeclarationSource
	repo         DeploymentRepository
	checker      *LayoutChecker
	generator    RouterGenerator
	compiler     RouterCompiler
	broadcaster  Broadcaster
	operator     Operator
	progress     ProgressSink
	log          *slog.Logger
}

// NewBuildRouter creates a new build use case
func NewBuildRouter(
	cfg *config.RuntimeConfig,
	declarations DeclarationSource,
	repo DeploymentRepository,
	checker *LayoutChecker,
	generator RouterGenerator,
	compiler RouterCompiler,
	broadcaster Broadcaster,
	operator Operator,
	progress ProgressSink,
	log *slog.Logger,
) *BuildRouter {
	return &BuildRouter{
		cfg:          cfg,
		declarations: declarations,
		repo:         repo,
		checker:      checker,
		generator:    generator,
		compiler:     compiler,
		broadcaster:  broadcaster,
		operator:     operator,
		progress:     progress,
		log:          log,
	}
}

// BuildParams contains parameters for a build
type BuildParams struct {
	Instance string
	Clear    bool // Discard every previous document before building
}

// BuildResult contains the outcome of a build
type BuildResult struct {
	Instance   string
	Generation string
	Previous   string

	Report    *domain.Report
	Changeset *models.Changeset
	Failed    domain.TransactionFailures

	RouterAddress string
	RouterChanged bool
	RouterSource  string

	ProxyAddress  string
	ProxyDeployed bool
	ProxyUpgraded bool
	ProxySkipped  bool // Operator declined the upgrade

	// Record is the document as it stood when the build returned
	Record   *models.DeploymentRecord
	Finalize *FinalizeResult
}

// Execute runs the build. Fatal verification findings abort before any
// transaction is submitted.
func (b *BuildRouter) Execute(ctx context.Context, params BuildParams) (*BuildResult, error) {
	instance := params.Instance
	if instance == "" {
		instance = b.cfg.Instance
	}
	result := &BuildResult{Instance: instance}

	if r, ok := b.broadcaster.(Readiness); ok {
		if err := r.Ready(); err != nil {
			return result, fmt.Errorf("broadcaster not available: %w", err)
		}
	}

	if params.Clear {
		if err := b.repo.Clear(ctx, instance); err != nil {
			return result, err
		}
		b.log.Info("cleared previous deployment state", "instance", instance)
	}

	previous, err := b.repo.LoadPrevious(ctx, instance)
	if err != nil {
		return result, err
	}
	if previous != nil {
		result.Previous = previous.Generation
	}

	snapshot, err := b.declarations.LoadSnapshot(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to load declarations: %w", err)
	}
	modules := snapshot.Modules()
	if len(modules) == 0 {
		return result, domain.ErrNoModules
	}

	// Static verification
	b.progress.OnProgress(ctx, ProgressEvent{Stage: StageVerify, Message: "Verifying storage layout and interfaces", Spinner: true})
	result.Report = b.checker.Check(previous, snapshot)
	if err := result.Report.Err(PhaseStaticVerification); err != nil {
		return result, err
	}
	if err := b.acknowledgeWarnings(ctx, result.Report); err != nil {
		return result, err
	}
	if err := checkEntryPoint(previous, snapshot); err != nil {
		return result, err
	}

	// Open the generation document
	initial := models.NewDeploymentRecord(instance, uuid.NewString())
	initial.StartedAt = time.Now().UTC()
	if previous != nil {
		initial.Previous = previous.Generation
	}
	state, err := b.repo.OpenPending(ctx, instance, initial)
	if err != nil {
		return result, err
	}
	result.Generation = state.Record().Generation
	defer func() {
		result.Record = state.Record()
		// Finalize closes the state itself; early returns leave it open
		if closer, ok := state.(io.Closer); ok {
			_ = closer.Close()
		}
	}()
	if err := state.SetStorage(snapshot.Namespaces()); err != nil {
		return result, err
	}

	// Redeploy set
	b.progress.OnProgress(ctx, ProgressEvent{Stage: StagePlan, Message: "Computing redeploy set"})
	result.Changeset = PlanModules(state.Record(), previous, modules)
	for _, change := range result.Changeset.Reuse {
		if change.Previous == nil {
			continue
		}
		carried := change.Previous.Clone()
		carried.Carried = true
		if err := state.SetArtifact(change.Contract.FullyQualifiedName(), carried); err != nil {
			return result, err
		}
	}

	failed, err := b.deployModules(ctx, state, result.Changeset.Deploy)
	if err != nil {
		return result, err
	}
	if len(failed) > 0 {
		result.Failed = failed
		return result, failed
	}

	// Dispatcher
	if err := b.buildRouter(ctx, state, previous, modules, result); err != nil {
		return result, err
	}

	// Entry point
	if err := b.ensureEntryPoint(ctx, state, previous, snapshot, result); err != nil {
		return result, err
	}

	b.progress.OnProgress(ctx, ProgressEvent{Stage: StageFinalize, Message: "Finalizing deployment state"})
	expectChanges := result.Changeset.HasChanges() || result.RouterChanged || result.ProxyDeployed || result.ProxyUpgraded
	fin, err := b.repo.Finalize(ctx, state, expectChanges)
	if err != nil {
		return result, err
	}
	result.Finalize = fin
	return result, nil
}

func (b *BuildRouter) acknowledgeWarnings(ctx context.Context, report *domain.Report) error {
	warnings := report.Warnings()
	if len(warnings) == 0 {
		return nil
	}
	for _, w := range warnings {
		b.progress.Info("warning: " + w.String())
	}
	// The prompt needs the terminal to itself
	b.progress.OnProgress(ctx, ProgressEvent{Stage: StageVerify})
	ok, err := b.operator.Confirm(ctx, fmt.Sprintf("Acknowledge %d warning(s) and continue", len(warnings)))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAborted
	}
	return nil
}

// checkEntryPoint enforces that the proxy bytecode never changes once recorded
func checkEntryPoint(previous *models.DeploymentRecord, snapshot *models.Snapshot) error {
	proxy, ok := snapshot.Proxy()
	if !ok || previous == nil {
		return nil
	}
	_, recorded, ok := previous.Proxy()
	if !ok || recorded.BytecodeHash == "" {
		return nil
	}
	if current := proxy.BytecodeHash(); current != recorded.BytecodeHash {
		return &domain.InvariantViolation{
			Subject:  proxy.FullyQualifiedName(),
			Reason:   "entry-point bytecode changed",
			Expected: recorded.BytecodeHash,
			Actual:   current,
		}
	}
	return nil
}

// PlanModules decides which modules need deploying. A module is reused when its
// bytecode hash matches a successful deploy of the running generation or of the
// previous generation.
func PlanModules(current, previous *models.DeploymentRecord, modules []*models.Contract) *models.Changeset {
	cs := &models.Changeset{}
	for _, m := range modules {
		fqn := m.FullyQualifiedName()
		hash := m.BytecodeHash()
		change := models.Change{Contract: m, BytecodeHash: hash}

		cur, inCurrent := current.Artifact(fqn)
		prev, inPrevious := previous.Artifact(fqn)

		switch {
		case inCurrent && cur.Deployed() && hash != "" && cur.BytecodeHash == hash:
			change.Reason = models.ReasonInProgress
			cs.Reuse = append(cs.Reuse, change)
		case inPrevious && prev.Deployed() && hash != "" && prev.BytecodeHash == hash:
			change.Reason = models.ReasonUnchanged
			change.Previous = prev
			cs.Reuse = append(cs.Reuse, change)
		case inCurrent && !cur.Deployed():
			change.Reason = models.ReasonFailed
			cs.Deploy = append(cs.Deploy, change)
		case inPrevious:
			change.Reason = models.ReasonChanged
			cs.Deploy = append(cs.Deploy, change)
		default:
			change.Reason = models.ReasonNew
			cs.Deploy = append(cs.Deploy, change)
		}
	}
	return cs
}

// deployModules submits every module deploy concurrently. A failed deploy does
// not cancel its siblings; persistence errors are returned as fatal.
func (b *BuildRouter) deployModules(ctx context.Context, state DeploymentState, changes []models.Change) (domain.TransactionFailures, error) {
	if len(changes) == 0 {
		return nil, nil
	}
	b.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageModules,
		Total:   len(changes),
		Message: fmt.Sprintf("Deploying %d module(s)", len(changes)),
		Spinner: true,
	})

	var (
		mu     sync.Mutex
		failed domain.TransactionFailures
		done   int
	)
	var g errgroup.Group
	for _, change := range changes {
		g.Go(func() error {
			failure, err := b.deployModule(ctx, state, change)
			mu.Lock()
			defer mu.Unlock()
			done++
			if failure != nil {
				failed = append(failed, failure)
				b.progress.Error(failure.Error())
			}
			b.progress.OnProgress(ctx, ProgressEvent{Stage: StageModules, Current: done, Total: len(changes), Message: change.Contract.Name})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return failed, err
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Contract < failed[j].Contract })
	return failed, nil
}

func (b *BuildRouter) deployModule(ctx context.Context, state DeploymentState, change models.Change) (*domain.TransactionFailure, error) {
	m := change.Contract
	fqn := m.FullyQualifiedName()
	b.log.Debug("deploying module", "module", fqn, "reason", change.Reason)

	receipt, deployErr := b.broadcaster.Deploy(ctx, DeployRequest{
		Contract:    fqn,
		Bytecode:    m.Bytecode,
		Description: "deploy " + m.Name,
	})

	outcome, failure := recordOutcome(fqn, receipt, deployErr)
	artifact := &models.ArtifactRecord{
		BytecodeHash: change.BytecodeHash,
		IsModule:     true,
		Transactions: map[string]*models.TransactionOutcome{models.TxDeploy: outcome},
	}
	if receipt != nil {
		artifact.Address = receipt.Address
	}
	if err := state.SetArtifact(fqn, artifact); err != nil {
		return nil, err
	}
	if err := state.AddGasUsed(outcome.GasUsed); err != nil {
		return nil, err
	}
	if failure != nil {
		return failure, nil
	}
	b.log.Info("module deployed", "module", m.Name, "address", artifact.Address, "gas", outcome.GasUsed)
	return nil, nil
}

// RouterFullyQualifiedName returns the key of the generated router
func RouterFullyQualifiedName(cfg config.RouterConfig) string {
	return path.Join(cfg.SourceDir, cfg.Name+".sol") + ":" + cfg.Name
}

// buildRouter renders the dispatcher and deploys it when its source changed
func (b *BuildRouter) buildRouter(ctx context.Context, state DeploymentState, previous *models.DeploymentRecord, modules []*models.Contract, result *BuildResult) error {
	b.progress.OnProgress(ctx, ProgressEvent{Stage: StageRouter, Message: "Generating router", Spinner: true})

	record := state.Record()
	addresses := make(map[string]string, len(modules))
	for _, m := range modules {
		a, ok := record.Artifact(m.FullyQualifiedName())
		if !ok || !a.Deployed() {
			return &domain.TransactionFailure{Contract: m.FullyQualifiedName(), Err: errors.New("module has no deployed address")}
		}
		addresses[m.FullyQualifiedName()] = a.Address
	}

	tree := router.Build(router.NewEntries(modules, b.checker.Include()), b.cfg.Router.MaxLeafSize)
	source, err := b.generator.GenerateRouter(ctx, &RouterSpec{
		Name:      b.cfg.Router.Name,
		Tree:      tree,
		Addresses: addresses,
	})
	if err != nil {
		return fmt.Errorf("failed to generate router: %w", err)
	}
	result.RouterSource = source
	b.log.Debug("router generated", "selectors", len(tree.All()), "depth", tree.Depth(), "leaves", len(tree.Leaves()))

	fqn := RouterFullyQualifiedName(b.cfg.Router)
	if cur, ok := record.Artifact(fqn); ok && cur.Deployed() && cur.SourceCode == source {
		result.RouterAddress = cur.Address
		return nil
	}
	if _, prev, ok := previous.Router(); ok && prev.Deployed() && prev.SourceCode == source {
		carried := prev.Clone()
		carried.Carried = true
		if err := state.SetArtifact(fqn, carried); err != nil {
			return err
		}
		result.RouterAddress = prev.Address
		b.log.Info("router source unchanged, skipping deploy", "address", prev.Address)
		return nil
	}

	compiled, err := b.compiler.CompileRouter(ctx, b.cfg.Router.Name, source)
	if err != nil {
		return fmt.Errorf("failed to compile router: %w", err)
	}

	receipt, deployErr := b.broadcaster.Deploy(ctx, DeployRequest{
		Contract:    fqn,
		Bytecode:    compiled.Bytecode,
		Description: "deploy " + b.cfg.Router.Name,
	})
	artifact := &models.ArtifactRecord{
		BytecodeHash: crypto.Keccak256Hash(common.FromHex(compiled.DeployedBytecode)).Hex(),
		IsRouter:     true,
		SourceCode:   source,
		Transactions: map[string]*models.TransactionOutcome{},
	}
	outcome, failure := recordOutcome(fqn, receipt, deployErr)
	if receipt != nil {
		artifact.Address = receipt.Address
	}
	artifact.Transactions[models.TxDeploy] = outcome
	if err := state.SetArtifact(fqn, artifact); err != nil {
		return err
	}
	if err := state.AddGasUsed(outcome.GasUsed); err != nil {
		return err
	}
	if failure != nil {
		result.Failed = domain.TransactionFailures{failure}
		return result.Failed
	}

	result.RouterAddress = artifact.Address
	result.RouterChanged = true
	b.log.Info("router deployed", "address", artifact.Address, "gas", outcome.GasUsed)
	return nil
}

// ensureEntryPoint deploys the proxy on first build and upgrades it to the
// current router after operator confirmation.
func (b *BuildRouter) ensureEntryPoint(ctx context.Context, state DeploymentState, previous *models.DeploymentRecord, snapshot *models.Snapshot, result *BuildResult) error {
	proxy, ok := snapshot.Proxy()
	if !ok {
		b.log.Debug("no entry point declared")
		return nil
	}
	b.progress.OnProgress(ctx, ProgressEvent{Stage: StageEntryPoint, Message: "Checking entry point"})
	fqn := proxy.FullyQualifiedName()

	existing, inCurrent := state.Record().Artifact(fqn)
	if !inCurrent || !existing.Deployed() {
		if prev, ok := previous.Artifact(fqn); ok && prev.Deployed() {
			existing = prev.Clone()
			existing.Carried = true
			if err := state.SetArtifact(fqn, existing); err != nil {
				return err
			}
		} else {
			existing = nil
		}
	}

	if existing == nil {
		return b.deployEntryPoint(ctx, state, proxy, result)
	}

	result.ProxyAddress = existing.Address
	if strings.EqualFold(existing.Implementation, result.RouterAddress) {
		return nil
	}

	prompt := fmt.Sprintf("Upgrade %s at %s to router %s", proxy.Name, existing.Address, result.RouterAddress)
	confirmed, err := b.operator.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !confirmed {
		result.ProxySkipped = true
		b.progress.Info("Entry point upgrade skipped")
		return nil
	}

	outcome, upgradeErr := b.broadcaster.UpgradeProxy(ctx, existing.Address, result.RouterAddress)
	outcome, failure := recordOutcome(fqn, &models.DeployReceipt{Outcome: outcome}, upgradeErr)
	if err := state.RecordTransaction(fqn, models.TxUpgrade, outcome); err != nil {
		return err
	}
	if err := state.AddGasUsed(outcome.GasUsed); err != nil {
		return err
	}
	if failure != nil {
		result.Failed = domain.TransactionFailures{failure}
		return result.Failed
	}

	upgraded := state.Record().Contracts[fqn].Clone()
	upgraded.Implementation = result.RouterAddress
	if err := state.SetArtifact(fqn, upgraded); err != nil {
		return err
	}
	result.ProxyUpgraded = true
	b.log.Info("entry point upgraded", "proxy", existing.Address, "router", result.RouterAddress)
	return nil
}

func (b *BuildRouter) deployEntryPoint(ctx context.Context, state DeploymentState, proxy *models.Contract, result *BuildResult) error {
	fqn := proxy.FullyQualifiedName()
	args := []string{result.RouterAddress, b.broadcaster.Sender()}

	receipt, deployErr := b.broadcaster.Deploy(ctx, DeployRequest{
		Contract:        fqn,
		Bytecode:        proxy.Bytecode,
		ConstructorArgs: args,
		Description:     "deploy " + proxy.Name,
	})
	outcome, failure := recordOutcome(fqn, receipt, deployErr)

	artifact := &models.ArtifactRecord{
		ConstructorArgs: args,
		BytecodeHash:    proxy.BytecodeHash(),
		IsProxy:         true,
		Implementation:  result.RouterAddress,
		Transactions:    map[string]*models.TransactionOutcome{models.TxDeploy: outcome},
	}
	if receipt != nil {
		artifact.Address = receipt.Address
	}
	if err := state.SetArtifact(fqn, artifact); err != nil {
		return err
	}
	if err := state.AddGasUsed(outcome.GasUsed); err != nil {
		return err
	}
	if failure != nil {
		result.Failed = domain.TransactionFailures{failure}
		return result.Failed
	}

	result.ProxyAddress = artifact.Address
	result.ProxyDeployed = true
	b.log.Info("entry point deployed", "address", artifact.Address, "router", result.RouterAddress)
	return nil
}

// recordOutcome normalises a broadcaster result into an outcome and an optional failure
func recordOutcome(fqn string, receipt *models.DeployReceipt, err error) (*models.TransactionOutcome, *domain.TransactionFailure) {
	var outcome *models.TransactionOutcome
	if receipt != nil && receipt.Outcome != nil {
		copied := *receipt.Outcome
		outcome = &copied
	} else {
		outcome = &models.TransactionOutcome{Status: models.TransactionStatusFailed}
	}
	if err != nil {
		outcome.Status = models.TransactionStatusFailed
		outcome.Description = err.Error()
	}
	if err != nil || outcome.Failed() {
		return outcome, &domain.TransactionFailure{Contract: fqn, Outcome: outcome, Err: err}
	}
	return outcome, nil
}
