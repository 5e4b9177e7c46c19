package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/econsec/engine"
	testobserve "github.com/alphabill-org/econsec/internal/testutils/observability"
	"github.com/alphabill-org/econsec/keyvaluedb/boltdb"
	"github.com/alphabill-org/econsec/moneyflow"
	"github.com/alphabill-org/econsec/risk"
	"github.com/alphabill-org/econsec/types"
)

const (
	paramsYAML = `payoutCap: "100"
settlementDelay: 7200
taskSchemaFixed: true
maxPayoutPerTask: "100"
minValidators: 5
consensusThreshold: 0.8
disputeWindow: 86400
stakeRequired: "1000"
`
	paramsJSON = `{"payoutCap":"100","settlementDelay":7200,"taskSchemaFixed":true,"maxPayoutPerTask":"100",
"minValidators":5,"consensusThreshold":0.8,"disputeWindow":86400,"stakeRequired":"1000"}`

	moneyFlowYAML = `creationFeeSplit:
  creatorReward: 20
  minerPool: 50
  purposeBoundSinks: 20
  burn: 10
usageCut:
  enabled: true
  percentage: 5
  minCut: "10"
  maxCut: "1000"
validatorPayment:
  enabled: true
  percentage: 10
  minPayment: "20"
  maxPayment: "5000"
`
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fn, []byte(content), 0600))
	return fn
}

/*
runCmd executes the application with given args in temporary home dir and
returns whatever the command printed to stdout.
*/
func runCmd(ctx context.Context, t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	app := New(testobserve.NewFactory(t))
	out := &bytes.Buffer{}
	app.baseCmd.SetOut(out)
	app.baseCmd.SetArgs(append(args, "--home", home))
	err := app.Execute(ctx)
	return out.String(), err
}

func TestScore(t *testing.T) {
	home := t.TempDir()
	params := writeFile(t, home, "params.yaml", paramsYAML)

	out, err := runCmd(context.Background(), t, home, "score", "--params", params)
	require.NoError(t, err)
	var score risk.Score
	require.NoError(t, json.Unmarshal([]byte(out), &score))
	require.Equal(t, risk.CategorySafe, score.Category)

	_, err = runCmd(context.Background(), t, home, "score")
	require.ErrorContains(t, err, `required flag(s) "params" not set`)

	_, err = runCmd(context.Background(), t, home, "score", "--params", filepath.Join(home, "missing.yaml"))
	require.ErrorContains(t, err, "loading risk parameters: opening input file")

	empty := writeFile(t, home, "empty.yaml", "")
	_, err = runCmd(context.Background(), t, home, "score", "--params", empty)
	require.ErrorContains(t, err, "is empty")
}

func TestCosts(t *testing.T) {
	home := t.TempDir()
	params := writeFile(t, home, "params.json", paramsJSON)

	out, err := runCmd(context.Background(), t, home, "costs", "--params", params, "--custom-penalty", "--penalty-config-fee", "7")
	require.NoError(t, err)
	var res engine.CostsResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, "7", res.Costs.PenaltyConfigFee.String())
	require.True(t, res.Costs.CreationFee.IsPositive())

	t.Run("env var", func(t *testing.T) {
		t.Setenv("ECONSEC_PENALTY_CONFIG_FEE", "9")
		out, err := runCmd(context.Background(), t, home, "costs", "--params", params, "--custom-penalty")
		require.NoError(t, err)
		var res engine.CostsResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Equal(t, "9", res.Costs.PenaltyConfigFee.String())
	})

	t.Run("config file", func(t *testing.T) {
		home := t.TempDir()
		writeFile(t, home, defaultConfigFile, "penalty-config-fee=11\n")
		out, err := runCmd(context.Background(), t, home, "costs", "--params", params, "--custom-penalty")
		require.NoError(t, err)
		var res engine.CostsResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.Equal(t, "11", res.Costs.PenaltyConfigFee.String())
	})

	t.Run("invalid parameters", func(t *testing.T) {
		invalid := writeFile(t, t.TempDir(), "params.json", `{"payoutCap":"-1","maxPayoutPerTask":"1","stakeRequired":"1","minValidators":1}`)
		_, err := runCmd(context.Background(), t, home, "costs", "--params", invalid)
		var verr *types.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, []string{"payoutCap must not be negative, got -1"}, verr.Errors)
	})

	t.Run("invalid fee flag", func(t *testing.T) {
		_, err := runCmd(context.Background(), t, home, "costs", "--params", params, "--base-creation-fee", "-1")
		require.ErrorContains(t, err, `invalid argument "-1" for "--base-creation-fee" flag`)
	})
}

func TestMoneyFlow(t *testing.T) {
	home := t.TempDir()
	cfgFile := writeFile(t, home, "moneyflow.yaml", moneyFlowYAML)
	creator := common.HexToAddress("0x00000000000000000000000000000000000000c1")

	t.Run("validate", func(t *testing.T) {
		out, err := runCmd(context.Background(), t, home, "moneyflow", "validate", "--moneyflow-config", cfgFile)
		require.NoError(t, err)
		var res types.ValidationResult
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.True(t, res.Valid)

		invalid := writeFile(t, t.TempDir(), "moneyflow.json", `{"creationFeeSplit":{"creatorReward":20,"minerPool":50,"purposeBoundSinks":20,"burn":20}}`)
		out, err = runCmd(context.Background(), t, home, "moneyflow", "validate", "--moneyflow-config", invalid)
		require.ErrorContains(t, err, "invalid money flow config: creationFeeSplit must sum to 100, got 110")
		require.NoError(t, json.Unmarshal([]byte(out), &res))
		require.False(t, res.Valid)
	})

	t.Run("route", func(t *testing.T) {
		out, err := runCmd(context.Background(), t, home, "moneyflow", "route", "--moneyflow-config", cfgFile, "--fee", "100", "--creator", creator.Hex())
		require.NoError(t, err)
		var rt moneyflow.CreationFeeRouting
		require.NoError(t, json.Unmarshal([]byte(out), &rt))
		require.Equal(t, creator, rt.Creator)
		require.Equal(t, "20", rt.CreatorReward.String())
		require.Equal(t, "50", rt.MinerPool.String())
		require.Equal(t, "20", rt.PurposeBoundSinks.String())
		require.Equal(t, "10", rt.Burn.String())
		require.Equal(t, types.BurnAddress, rt.PurposeBoundSinksAddress)

		_, err = runCmd(context.Background(), t, home, "moneyflow", "route", "--moneyflow-config", cfgFile, "--fee", "100", "--creator", "0x01")
		require.ErrorContains(t, err, "is not a hex encoded address")

		// econsec config file can be given next to the money flow config
		sinks := common.HexToAddress("0x5151515151515151515151515151515151515151")
		props := writeFile(t, t.TempDir(), "custom.props", "sinks-address="+sinks.Hex()+"\n")
		out, err = runCmd(context.Background(), t, home, "moneyflow", "route", "--config", props, "--moneyflow-config", cfgFile, "--fee", "100", "--creator", creator.Hex())
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal([]byte(out), &rt))
		require.Equal(t, sinks, rt.PurposeBoundSinksAddress)
	})

	t.Run("usage cut", func(t *testing.T) {
		out, err := runCmd(context.Background(), t, home, "moneyflow", "usage-cut", "--moneyflow-config", cfgFile, "--payment", "1000")
		require.NoError(t, err)
		var rt moneyflow.TaskPaymentRouting
		require.NoError(t, json.Unmarshal([]byte(out), &rt))
		require.Equal(t, "50", rt.CreatorCut.String())
		require.Equal(t, "100", rt.ValidatorPayment.String())
		require.Equal(t, "850", rt.MinerPayment.String())
		require.False(t, rt.Reduced)
	})
}

func TestLoggerConfig(t *testing.T) {
	home := t.TempDir()
	params := writeFile(t, home, "params.yaml", paramsYAML)

	_, err := runCmd(context.Background(), t, home, "score", "--params", params, "--logger-config", filepath.Join(home, "missing.yaml"))
	require.ErrorContains(t, err, "opening logger configuration file")

	writeFile(t, home, defaultLoggerConfigFile, "defaultLevel: [\n")
	_, err = runCmd(context.Background(), t, home, "score", "--params", params)
	require.ErrorContains(t, err, "decoding logger configuration")
}

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe(t *testing.T) {
	home := t.TempDir()
	addr := freeAddress(t)
	low := common.HexToAddress("0x0a")
	high := common.HexToAddress("0x0b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		_, err := runCmd(ctx, t, home, "serve", "--address", addr, "--history-save-interval", "0")
		done <- err
	}()

	require.Eventually(t, func() bool {
		rsp, err := http.Get("http://" + addr + "/api/v1/moneyflow/sinks")
		if err != nil {
			return false
		}
		defer rsp.Body.Close()
		return rsp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	observe := func(v common.Address, score string) {
		rsp, err := http.Post("http://"+addr+"/api/v1/validators/"+v.Hex()+"/observations", "application/json", bytes.NewBufferString(`{"score":`+score+`}`))
		require.NoError(t, err)
		require.NoError(t, rsp.Body.Close())
		require.Equal(t, http.StatusNoContent, rsp.StatusCode)
	}
	observe(low, "10")
	observe(high, "90")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve didn't exit in time")
	}

	// histories were saved on shutdown
	db, err := boltdb.New(filepath.Join(home, defaultDBFileName))
	require.NoError(t, err)
	defer db.Close()
	e, err := engine.New(testobserve.Default(t), engine.WithDB(db))
	require.NoError(t, err)
	require.NoError(t, e.LoadHistory())
	require.InDelta(t, 0, e.RelativeRisk(low), 1e-9)
	require.InDelta(t, 1, e.RelativeRisk(high), 1e-9)
}
