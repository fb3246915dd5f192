package services

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"tilevar/api/models"
	"tilevar/api/models/constants"
	"tilevar/api/models/constants/chromosome"
	"tilevar/api/models/ingest"
	"tilevar/api/models/records"
	"tilevar/api/models/schemas"
	"tilevar/api/repositories/tiledb"
	"tilevar/api/services/engine"
	"tilevar/api/utils"
)

type (
	IngestionService struct {
		Initialized         bool
		Config              *models.Config
		Engine              *engine.EngineService
		Client              *tiledb.Client
		IngestRequestChan   chan *ingest.VariantIngestRequest
		IngestRequestMap    map[string]*ingest.VariantIngestRequest
		IngestRequestMapMux sync.RWMutex

		// bounds the number of files processed at any given time
		ConcurrentFileIngestionQueue chan bool

		arraysMux     sync.Mutex
		arraysEnsured bool

		// integer handles for the samples array; seeded from the
		// store on first use so handles survive bridge restarts,
		// new names continue after the highest stored handle
		samplesMux    sync.Mutex
		samplesLoaded bool
		sampleHandles map[string]int
		nextHandle    int
	}
)

func NewIngestionService(eng *engine.EngineService, client *tiledb.Client, cfg *models.Config) *IngestionService {
	iz := &IngestionService{
		Initialized:                  false,
		Config:                       cfg,
		Engine:                       eng,
		Client:                       client,
		IngestRequestChan:            make(chan *ingest.VariantIngestRequest),
		IngestRequestMap:             map[string]*ingest.VariantIngestRequest{},
		IngestRequestMapMux:          sync.RWMutex{},
		ConcurrentFileIngestionQueue: make(chan bool, cfg.Api.FileProcessingSlots),
		sampleHandles:                map[string]int{},
	}

	iz.Init()

	return iz
}

func (i *IngestionService) Init() {
	// safeguard to prevent multiple initilizations
	if !i.Initialized {
		// listener for ingest request state updates
		go func() {
			for variantIngestRequest := range i.IngestRequestChan {
				if variantIngestRequest.State == ingest.Queued {
					fmt.Printf("Queueing a new variant ingestion request for %s\n", variantIngestRequest.Filename)
				}

				variantIngestRequest.UpdatedAt = time.Now().String()
				i.IngestRequestMapMux.Lock()
				i.IngestRequestMap[variantIngestRequest.Id.String()] = variantIngestRequest
				i.IngestRequestMapMux.Unlock()
			}
		}()

		i.Initialized = true
	}
}

// PublishState sends a snapshot of the request state to the
// listener rather than the live pointer : the producing goroutine
// keeps mutating its own copy (state, message, counters) while
// status pollers marshal whatever the map holds, so sharing the
// pointer would race
func (i *IngestionService) PublishState(reqStat *ingest.VariantIngestRequest) {
	snapshot := *reqStat
	i.IngestRequestChan <- &snapshot
}

func (i *IngestionService) FilenameAlreadyRunning(filename string) bool {
	i.IngestRequestMapMux.Lock()
	defer i.IngestRequestMapMux.Unlock()

	for _, v := range i.IngestRequestMap {
		if v.Filename == filename && (v.State == ingest.Queued || v.State == ingest.Running) {
			return true
		}
	}
	return false
}

// CoordKey is the store's row key; everything sharing it must be
// folded into a single record before commit
type CoordKey struct {
	Chrom int
	Pos   int
}

// FoldBatch deduplicates a batch by (chromosome, position),
// merging candidates that share a coordinate :
//   - alternate-allele sets are unioned
//   - the higher quality wins (absent < any present)
//   - sample maps are unioned; later entries for the same sample
//     id overwrite earlier ones
//   - filter tags keep the most recently seen value (known
//     limitation)
//
// Without this fold, a source emitting one line per allele or
// per sample group would clobber earlier writes at the same
// coordinate, since the store key is (chromosome, position) only.
func FoldBatch(candidates []records.Variant) (map[CoordKey]*records.Variant, int) {
	merged := map[CoordKey]*records.Variant{}
	skippedInvalid := 0

	for _, candidate := range candidates {
		coord, coordErr := chromosome.ToCoordinate(candidate.Chrom)
		if coordErr != nil {
			skippedInvalid++
			continue
		}
		if posErr := chromosome.CheckPosition(candidate.Pos); posErr != nil {
			skippedInvalid++
			continue
		}

		key := CoordKey{Chrom: coord, Pos: candidate.Pos}

		existing, present := merged[key]
		if !present {
			folded := candidate
			merged[key] = &folded
			continue
		}

		mergeInto(existing, candidate)
	}

	return merged, skippedInvalid
}

func mergeInto(existing *records.Variant, candidate records.Variant) {
	// union the alternate-allele sets, preserving first-seen order
	for _, alt := range candidate.Alt {
		if !utils.StringInSlice(alt, existing.Alt) {
			existing.Alt = append(existing.Alt, alt)
		}
	}

	// keep the higher of the two quality scores; an absent
	// quality is lower than any present value
	if candidate.Qual != nil && (existing.Qual == nil || *candidate.Qual > *existing.Qual) {
		qual := *candidate.Qual
		existing.Qual = &qual
	}

	// filter tags : most recently seen value wins
	if candidate.Filter != nil {
		existing.Filter = candidate.Filter
	}

	// annotation map : union, later entries win
	for key, value := range candidate.Info {
		if existing.Info == nil {
			existing.Info = map[string]string{}
		}
		existing.Info[key] = value
	}

	// sample maps : union, later entries for the same sample
	// identifier overwrite earlier ones
	for sampleId, fields := range candidate.Samples {
		if existing.Samples == nil {
			existing.Samples = map[string]records.SampleFields{}
		}
		existing.Samples[sampleId] = fields
	}
}

// IngestBatch folds one caller-supplied batch and commits the
// merged set through a single write request. A failed write
// skips the batch in its entirety -- ingestion trades
// completeness for forward progress, and the loss is surfaced in
// the returned counts rather than swallowed.
func (i *IngestionService) IngestBatch(ctx context.Context, candidates []records.Variant) (written int, skipped int) {
	if len(candidates) == 0 {
		return 0, 0
	}

	merged, skippedInvalid := FoldBatch(candidates)
	skipped += skippedInvalid

	if len(merged) == 0 {
		return 0, skipped
	}

	if engineErr := i.Engine.EnsureRunning(ctx); engineErr != nil {
		fmt.Printf("[%s] - Engine unavailable, skipping batch of %d merged variants : %v\n", time.Now(), len(merged), engineErr)
		return 0, skipped + len(merged)
	}

	if schemaErr := i.ensureArrays(ctx); schemaErr != nil {
		fmt.Printf("[%s] - Array creation failed, skipping batch of %d merged variants : %v\n", time.Now(), len(merged), schemaErr)
		return 0, skipped + len(merged)
	}

	// flatten the fold to parallel coordinate/attribute arrays,
	// in deterministic coordinate order
	keys := make([]CoordKey, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].Chrom != keys[b].Chrom {
			return keys[a].Chrom < keys[b].Chrom
		}
		return keys[a].Pos < keys[b].Pos
	})

	rows := make([]tiledb.VariantRow, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, flattenVariant(key, merged[key]))
	}

	if writeErr := i.Client.WriteVariants(ctx, rows); writeErr != nil {
		fmt.Printf("[%s] - Batch write of %d merged variants failed, skipping : %v\n", time.Now(), len(rows), writeErr)
		return 0, skipped + len(rows)
	}

	return len(rows), skipped
}

func flattenVariant(key CoordKey, variant *records.Variant) tiledb.VariantRow {
	row := tiledb.VariantRow{
		Chrom:  key.Chrom,
		Pos:    key.Pos,
		Ref:    variant.Ref,
		Alt:    strings.Join(variant.Alt, ","),
		Qual:   -1, // encodes "absent"
		Filter: strings.Join(variant.Filter, ","),
	}
	if variant.Qual != nil {
		row.Qual = *variant.Qual
	}
	if len(variant.Info) > 0 {
		infoBytes, _ := json.Marshal(variant.Info)
		row.Info = string(infoBytes)
	}
	if len(variant.Samples) > 0 {
		sampleBytes, _ := json.Marshal(variant.Samples)
		row.Samples = string(sampleBytes)
	}
	return row
}

// RegisterSamples stores sample identifiers (typically the
// header's sample-name list) under stable integer handles;
// re-registering a known name is a no-op. The allocator is seeded
// from the store's existing rows before the first assignment, so
// a restarted bridge never hands an already-taken handle to a
// different name.
func (i *IngestionService) RegisterSamples(ctx context.Context, samples []records.Sample) error {
	if engineErr := i.Engine.EnsureRunning(ctx); engineErr != nil {
		return engineErr
	}
	if schemaErr := i.ensureArrays(ctx); schemaErr != nil {
		return schemaErr
	}

	i.samplesMux.Lock()
	if !i.samplesLoaded {
		known, loadErr := i.Client.QuerySamples(ctx)
		if loadErr != nil {
			i.samplesMux.Unlock()
			return loadErr
		}
		i.seedSampleHandles(known)
		i.samplesLoaded = true
	}
	rows := i.assignSampleRows(samples)
	i.samplesMux.Unlock()

	if len(rows) == 0 {
		return nil
	}

	return i.Client.WriteSamples(ctx, rows)
}

// seedSampleHandles absorbs the store's existing allocations;
// caller holds samplesMux
func (i *IngestionService) seedSampleHandles(known []tiledb.SampleRow) {
	for _, row := range known {
		i.sampleHandles[row.Name] = row.Index
		if row.Index >= i.nextHandle {
			i.nextHandle = row.Index + 1
		}
	}
}

// assignSampleRows hands out fresh handles to unknown names;
// caller holds samplesMux
func (i *IngestionService) assignSampleRows(samples []records.Sample) []tiledb.SampleRow {
	rows := make([]tiledb.SampleRow, 0, len(samples))
	for _, sample := range samples {
		if _, known := i.sampleHandles[sample.Name]; known {
			continue
		}
		handle := i.nextHandle
		i.nextHandle++
		i.sampleHandles[sample.Name] = handle

		metadataBytes, _ := json.Marshal(sample.Metadata)
		rows = append(rows, tiledb.SampleRow{
			Index:    handle,
			Name:     sample.Name,
			Metadata: string(metadataBytes),
		})
	}
	return rows
}

// ensureArrays lazily creates the two on-disk layouts on first
// use. The check-then-create is not transactional : a concurrent
// first-time caller may have won the race, so an "already
// exists" engine error is a non-fatal outcome.
func (i *IngestionService) ensureArrays(ctx context.Context) error {
	i.arraysMux.Lock()
	defer i.arraysMux.Unlock()

	if i.arraysEnsured {
		return nil
	}

	if createErr := i.Client.CreateArrays(ctx, schemas.All()); createErr != nil {
		var engineReported *tiledb.EngineError
		if errors.As(createErr, &engineReported) && strings.Contains(engineReported.Message, "already exists") {
			i.arraysEnsured = true
			return nil
		}
		return createErr
	}

	i.arraysEnsured = true
	return nil
}

// ProcessVcf reads one (optionally gzipped) variant file,
// discovers the header's sample ids, folds the parsed candidates
// into bounded batches and commits them one write per batch,
// accumulating run-level summary statistics on the request state
func (i *IngestionService) ProcessVcf(ctx context.Context, filePath string, reqStat *ingest.VariantIngestRequest) error {
	f, openErr := os.Open(filePath)
	if openErr != nil {
		return fmt.Errorf("failed to open %s : %v", filePath, openErr)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(filePath, ".gz") {
		gzipReader, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return fmt.Errorf("failed to gunzip %s : %v", filePath, gzErr)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var (
		discoveredHeaders bool
		headers           []string
		headerSampleIds   = map[int]string{}
		batch             = make([]records.Variant, 0, i.Config.Api.IngestionBatchSize)
	)

	commitBatch := func() {
		if len(batch) == 0 {
			return
		}
		written, skipped := i.IngestBatch(ctx, batch)
		reqStat.VariantsWritten += written
		reqStat.VariantsSkipped += skipped
		if written > 0 {
			reqStat.BatchesWritten++
		}
		if skipped > 0 {
			reqStat.BatchesSkipped++
		}
		batch = batch[:0]
	}

	for scanner.Scan() {
		line := scanner.Text()

		// gather the header row by seeking the #CHROM string
		if !discoveredHeaders {
			if strings.HasPrefix(line, "#CHROM") {
				headers = strings.Split(line, "\t")

				for id, header := range headers {
					// any non-standard header on this row is
					// assumed to be a sample id
					cleaned := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(header, "#", "")))
					if !utils.StringInSlice(cleaned, constants.VcfHeaders) {
						headerSampleIds[id] = strings.TrimSpace(header)
					}
				}

				discoveredHeaders = true

				// register the header's sample-name list up front
				headerSamples := make([]records.Sample, 0, len(headerSampleIds))
				for _, sampleId := range headerSampleIds {
					headerSamples = append(headerSamples, records.Sample{Name: sampleId})
				}
				if registerErr := i.RegisterSamples(ctx, headerSamples); registerErr != nil {
					fmt.Printf("[%s] - Sample registration failed for %s : %v\n", time.Now(), filePath, registerErr)
				}
			}
			continue
		}

		candidate, ok := i.parseVcfLine(headers, headerSampleIds, line)
		if !ok {
			reqStat.VariantsSkipped++
			continue
		}

		batch = append(batch, candidate)
		if len(batch) >= i.Config.Api.IngestionBatchSize {
			commitBatch()
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		commitBatch()
		return fmt.Errorf("failed reading %s : %v", filePath, scanErr)
	}

	commitBatch()

	fmt.Printf("File %s complete : %d written, %d skipped over %d batches (%d skipped batches)\n",
		filePath, reqStat.VariantsWritten, reqStat.VariantsSkipped, reqStat.BatchesWritten, reqStat.BatchesSkipped)

	return nil
}

// parseVcfLine shapes one data row into a raw candidate; the
// heavy lifting (dedup/merge) happens later in FoldBatch
func (i *IngestionService) parseVcfLine(headers []string, headerSampleIds map[int]string, line string) (records.Variant, bool) {
	rowComponents := strings.Split(line, "\t")
	if len(rowComponents) < 8 || len(rowComponents) != len(headers) {
		return records.Variant{}, false
	}

	candidate := records.Variant{
		Chrom: strings.TrimSpace(rowComponents[0]),
		Ref:   strings.TrimSpace(rowComponents[3]),
	}

	if !chromosome.IsValidHumanChromosome(candidate.Chrom) {
		return records.Variant{}, false
	}

	pos, posErr := strconv.Atoi(strings.TrimSpace(rowComponents[1]))
	if posErr != nil {
		return records.Variant{}, false
	}
	candidate.Pos = pos

	if alt := strings.TrimSpace(rowComponents[4]); alt != "" && alt != "." {
		candidate.Alt = strings.Split(alt, ",")
	}

	if qualString := strings.TrimSpace(rowComponents[5]); qualString != "" && qualString != "." {
		if qual, qualErr := strconv.ParseFloat(qualString, 64); qualErr == nil {
			candidate.Qual = &qual
		}
	}

	if filter := strings.TrimSpace(rowComponents[6]); filter != "" && filter != "." {
		candidate.Filter = strings.Split(filter, ";")
	}

	// fold the ID and INFO columns into the annotation map
	candidate.Info = map[string]string{}
	if id := strings.TrimSpace(rowComponents[2]); id != "" && id != "." {
		candidate.Info["ID"] = id
	}
	if infoString := strings.TrimSpace(rowComponents[7]); infoString != "" && infoString != "." {
		for _, semiColonSeparation := range strings.Split(infoString, ";") {
			equalitySeparations := strings.SplitN(semiColonSeparation, "=", 2)
			if len(equalitySeparations) == 2 {
				candidate.Info[equalitySeparations[0]] = equalitySeparations[1]
			} else {
				candidate.Info[equalitySeparations[0]] = ""
			}
		}
	}

	// per-sample genotype columns, keyed by the FORMAT ids
	if len(rowComponents) > 9 {
		formatKeys := strings.Split(strings.TrimSpace(rowComponents[8]), ":")
		candidate.Samples = map[string]records.SampleFields{}

		for index := 9; index < len(rowComponents); index++ {
			sampleId, known := headerSampleIds[index]
			if !known {
				continue
			}

			sampleValues := strings.Split(strings.TrimSpace(rowComponents[index]), ":")

			fields := records.SampleFields{}
			for k, formatKey := range formatKeys {
				if k < len(sampleValues) {
					fields[formatKey] = sampleValues[k]
				}
			}

			// optionally filter out homozygous reference calls
			genotype := fields["GT"]
			if i.Config.Api.FilterOutReferenceCalls &&
				(genotype == "0" || genotype == "0|0" || genotype == "0/0") {
				continue
			}

			candidate.Samples[sampleId] = fields
		}

		if len(candidate.Samples) == 0 {
			// nothing left to ingest for this call
			return records.Variant{}, false
		}
	}

	return candidate, true
}
