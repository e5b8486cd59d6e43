package shell

import "github.com/prometheus/client_golang/prometheus"

var (
	txMtc = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "anoma_shell_txs_total",
			Help: "Transactions processed by ApplyTx, by result.",
		},
		[]string{"result"},
	)
	gasMtc = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anoma_shell_gas_consumed_total",
			Help: "Total gas consumed by processed transactions.",
		},
	)
	blockMtc = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "anoma_shell_committed_blocks_total",
			Help: "Number of committed blocks.",
		},
	)
	heightMtc = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "anoma_shell_block_height",
			Help: "Height of the last committed block.",
		},
	)
)

func init() {
	prometheus.MustRegister(txMtc, gasMtc, blockMtc, heightMtc)
}
