// trafficgen generates synthetic toll transactions with composite vehicle
// images and dispatches them in batches to a file bucket or a message queue.
package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	aa_bucket "github.com/aaronland/gocloud-blob/bucket"
	"github.com/rs/zerolog"
	"github.com/sfomuseum/go-flags/flagset"
	"github.com/tollhost/go-trafficgen"
	_ "gocloud.dev/blob/fileblob"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/azuresb"
)

func main() {

	var start_date string
	var end_date string
	var daily_volume int
	var batch_size int
	var config_path string
	var template_path string
	var font_path string
	var images_bucket_uri string
	var batches_bucket_uri string
	var queue_uri string
	var use_queue bool
	var seed int64
	var verbose bool

	fs := flagset.NewFlagSet("trafficgen")

	fs.StringVar(&start_date, "start", "", "Start date (YYYY-MM-DD), inclusive.")
	fs.StringVar(&end_date, "end", "", "End date (YYYY-MM-DD), exclusive. Defaults to today.")
	fs.IntVar(&daily_volume, "daily-volume", 10, "Average records generated per day.")
	fs.IntVar(&batch_size, "batch-size", 10, "Records per dispatched batch.")
	fs.StringVar(&config_path, "config", "", "Optional JSON file with jurisdiction, vehicle-type and effect tables.")
	fs.StringVar(&template_path, "template", "vehicle.jpg", "Vehicle template image.")
	fs.StringVar(&font_path, "font", "arialbd.ttf", "Bold TTF used for plate overlays.")
	fs.StringVar(&images_bucket_uri, "images-bucket-uri", "file:///tollhost/vehicle_images?create_dir=true", "gocloud.dev/blob URI receiving vehicle images.")
	fs.StringVar(&batches_bucket_uri, "batches-bucket-uri", "file:///tollhost/trxdata?create_dir=true", "gocloud.dev/blob URI receiving batch documents (file mode).")
	fs.StringVar(&queue_uri, "queue-uri", "azuresb://imagetrxqueue", "gocloud.dev/pubsub URI receiving records (queue mode).")
	fs.BoolVar(&use_queue, "use-queue", false, "Publish records to the queue instead of writing batch files.")
	fs.Int64Var(&seed, "seed", 0, "Random seed. 0 seeds from the clock.")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging.")

	flagset.Parse(fs)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if !verbose {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	if start_date == "" {
		logger.Fatal().Msg("Missing required -start date (YYYY-MM-DD)")
	}

	start, err := time.Parse("2006-01-02", start_date)

	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to parse -start date")
	}

	end := time.Now()

	if end_date != "" {

		end, err = time.Parse("2006-01-02", end_date)

		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to parse -end date")
		}
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	rng := rand.New(rand.NewSource(seed))

	cfg, err := trafficgen.LoadConfig(config_path)

	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	images_bucket, err := aa_bucket.OpenBucket(ctx, images_bucket_uri)

	if err != nil {
		logger.Fatal().Err(err).Str("uri", images_bucket_uri).Msg("Failed to open images bucket")
	}

	defer images_bucket.Close()

	sampler, err := trafficgen.NewPlateSampler(cfg.PlateStates, rng)

	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create plate sampler")
	}

	engine := trafficgen.NewEffectEngine(rng)

	composer_opts := trafficgen.ComposerOptions{
		TemplatePath:  template_path,
		FontPath:      font_path,
		Bucket:        images_bucket,
		EffectWeights: cfg.Effects,
		Logger:        logger,
	}

	composer, err := trafficgen.NewComposer(composer_opts, engine, rng)

	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create composer")
	}

	assembler := trafficgen.NewAssembler(sampler, composer, cfg.VehicleTypes, rng, logger)

	var sink trafficgen.Sink

	if use_queue {

		topic, err := pubsub.OpenTopic(ctx, queue_uri)

		if err != nil {
			logger.Fatal().Err(err).Str("uri", queue_uri).Msg("Failed to open queue topic")
		}

		defer topic.Shutdown(ctx)

		sink = trafficgen.NewQueueSink(topic, trafficgen.QueueSinkOptions{}, logger)

	} else {

		batches_bucket, err := aa_bucket.OpenBucket(ctx, batches_bucket_uri)

		if err != nil {
			logger.Fatal().Err(err).Str("uri", batches_bucket_uri).Msg("Failed to open batches bucket")
		}

		defer batches_bucket.Close()

		sink = trafficgen.NewFileSink(batches_bucket, logger)
	}

	dispatcher, err := trafficgen.NewBatchDispatcher(sink, batch_size, logger)

	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create batch dispatcher")
	}

	generator := trafficgen.NewGenerator(assembler, dispatcher, logger)

	opts := trafficgen.GeneratorOptions{
		Start:              start,
		End:                end,
		AverageDailyVolume: daily_volume,
	}

	total, err := generator.Run(ctx, opts)

	if err != nil {
		logger.Fatal().Err(err).Msg("Generation failed")
	}

	logger.Info().Int("total_records", total).Msg("Done")
}
