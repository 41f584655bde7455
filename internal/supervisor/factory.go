package supervisor

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/internal/crawler"
	"github.com/goran-ethernal/DDOIndexor/internal/decoder"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
	"github.com/goran-ethernal/DDOIndexor/internal/rpc"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
)

// CrawlerDeps are shared by every worker the factory builds.
type CrawlerDeps struct {
	Defaults    config.CrawlerConfig
	Checkpoints crawler.CheckpointStore
	Documents   crawler.DocumentStore
	Decoder     *decoder.Decoder
}

// NewCrawlerFactory returns a factory dialing the RPC endpoints of each network
// and building a crawler worker over them.
func NewCrawlerFactory(deps CrawlerDeps, log *logger.Logger) WorkerFactory {
	return func(ctx context.Context, network config.NetworkConfig, cp *uint64, out Outputs) (Worker, error) {
		cfg := network.EffectiveCrawler(deps.Defaults)

		rpcLog := log.WithComponent(common.ComponentRPC).WithNetwork(network.ChainID, network.DisplayName())
		client, err := rpc.DialFailover(ctx, network.ChainID, network.RPCURLs, cfg.Retry, cfg.RequestTimeout.Duration, rpcLog)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", crawler.ErrProviderUnavailable, err)
		}

		w, err := crawler.New(crawler.Options{
			Network:    network,
			Crawler:    cfg,
			Checkpoint: cp,
			Events:     out.Events,
			Lifecycle:  out.Lifecycle,
		}, crawler.Deps{
			Client:      client,
			Checkpoints: deps.Checkpoints,
			Documents:   deps.Documents,
			Decoder:     deps.Decoder,
		}, log)
		if err != nil {
			client.Close()
			return nil, err
		}

		return &dialedWorker{Worker: w, client: client}, nil
	}
}

// dialedWorker closes its RPC connections once the worker exits.
type dialedWorker struct {
	*crawler.Worker
	client *rpc.FailoverClient
}

func (d *dialedWorker) Run(ctx context.Context) error {
	defer d.client.Close()
	return d.Worker.Run(ctx)
}
