package mvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tilevar/api/contexts"
	"tilevar/api/models/constants/chromosome"
	"tilevar/api/models/dtos"
	"tilevar/api/models/ingest"
	"tilevar/api/models/records"

	"github.com/google/uuid"
	"github.com/labstack/echo"
)

func VariantsGet(c echo.Context) error {
	fmt.Printf("[%s] - VariantsGet hit!\n", time.Now())
	gc := c.(*contexts.TilevarContext)

	chromQuery, lowerBound, upperBound, reference, alternative, minQuality, sampleIds, limit := RetrieveCommonElements(c)

	query := records.VariantQuery{
		Chromosome:  chromQuery,
		Start:       lowerBound,
		End:         upperBound,
		Reference:   reference,
		Alternative: alternative,
		MinQuality:  minQuality,
		SampleIds:   sampleIds,
		Limit:       limit,
	}

	results, queryErr := gc.VariantService.QueryVariants(c.Request().Context(), query)
	if queryErr != nil {
		// validation failures only; engine trouble degrades to
		// an empty result set inside the service
		return echo.NewHTTPError(http.StatusBadRequest, queryErr.Error())
	}

	respDTO := dtos.VariantGetReponse{
		VariantReponse: dtos.VariantReponse{
			Status:  200,
			Message: "Success",
		},
		Results: []dtos.VariantGetResult{{
			Chromosome: chromQuery,
			Start:      lowerBound,
			End:        upperBound,
			Calls:      results,
		}},
	}

	return c.JSON(http.StatusOK, respDTO)
}

func VariantsAlleleFrequency(c echo.Context) error {
	fmt.Printf("[%s] - VariantsAlleleFrequency hit!\n", time.Now())
	gc := c.(*contexts.TilevarContext)

	chromQP := c.QueryParam("chromosome")
	refQP := c.QueryParam("reference")
	altQP := c.QueryParam("alternative")
	posQP := c.QueryParam("position")

	if chromQP == "" || refQP == "" || altQP == "" || posQP == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing one of 'chromosome', 'position', 'reference', 'alternative' query parameters!")
	}

	pos, posErr := strconv.Atoi(posQP)
	if posErr != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Error converting 'position' query parameter! Check your input")
	}

	frequency, freqErr := gc.VariantService.CalculateAlleleFrequency(c.Request().Context(), chromQP, pos, refQP, altQP)
	if freqErr != nil {
		if errors.Is(freqErr, chromosome.ErrInvalidChromosome) || errors.Is(freqErr, chromosome.ErrInvalidRange) {
			return echo.NewHTTPError(http.StatusBadRequest, freqErr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, freqErr.Error())
	}

	return c.JSON(http.StatusOK, dtos.AlleleFrequencyResponse{
		Chrom:     chromQP,
		Pos:       pos,
		Ref:       refQP,
		Alt:       altQP,
		Frequency: frequency,
	})
}

func GetVariantsOverview(c echo.Context) error {
	fmt.Printf("[%s] - GetVariantsOverview hit!\n", time.Now())
	gc := c.(*contexts.TilevarContext)

	statsResponse := gc.StatsService.GetArrayStats(c.Request().Context())

	return c.JSON(http.StatusOK, statsResponse)
}

func VariantsIngest(c echo.Context) error {
	fmt.Printf("[%s] - VariantsIngest hit!\n", time.Now())
	gc := c.(*contexts.TilevarContext)
	cfg := gc.Config
	vcfPath := cfg.Api.VcfPath

	ingestionService := gc.IngestionService

	// retrieve query parameters (comma separated)
	fileNames := strings.Split(c.QueryParam("fileNames"), ",")
	if len(fileNames) == 1 && fileNames[0] == "" {
		return c.JSON(http.StatusBadRequest, "{\"error\" : \"Missing 'fileNames' query parameter!\"}")
	}

	// catalog all .vcf / .vcf.gz files available on disk
	var availableFiles []string
	walkErr := filepath.Walk(vcfPath,
		func(absoluteFileName string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}

			relativePathFileName := strings.TrimPrefix(strings.ReplaceAll(absoluteFileName, vcfPath, ""), "/")

			if matched, _ := regexp.MatchString(`\.vcf(\.gz)?$`, relativePathFileName); matched {
				availableFiles = append(availableFiles, relativePathFileName)
			} else {
				fmt.Printf("Skipping %s\n", relativePathFileName)
			}
			return nil
		})
	if walkErr != nil {
		fmt.Println(walkErr)
	}

	startTime := time.Now()
	fmt.Printf("Ingest Start: %s\n", startTime)

	responseDtos := []ingest.IngestResponseDTO{}
	for _, fileName := range fileNames {
		// locate the requested file among the found files
		found := false
		for _, availableFile := range availableFiles {
			if availableFile == fileName {
				found = true
				break
			}
		}
		if !found {
			responseDtos = append(responseDtos, ingest.IngestResponseDTO{
				Filename: fileName,
				State:    ingest.Error,
				Message:  "File not found! Aborted --",
			})
			continue
		}

		// check if there is an already existing ingestion request state
		if ingestionService.FilenameAlreadyRunning(fileName) {
			responseDtos = append(responseDtos, ingest.IngestResponseDTO{
				Filename: fileName,
				State:    ingest.Error,
				Message:  "File already being ingested..",
			})
			continue
		}

		// if not, queue it up
		newRequestState := &ingest.VariantIngestRequest{
			Id:        uuid.New(),
			Filename:  fileName,
			State:     ingest.Queued,
			CreatedAt: fmt.Sprintf("%v", startTime),
		}
		ingestionService.PublishState(newRequestState)

		responseDtos = append(responseDtos, ingest.IngestResponseDTO{
			Id:       newRequestState.Id,
			Filename: newRequestState.Filename,
			State:    newRequestState.State,
			Message:  "Successfully queued..",
		})

		go func(_fileName string, reqStat *ingest.VariantIngestRequest) {
			// take a spot in the queue
			ingestionService.ConcurrentFileIngestionQueue <- true
			// free up a spot in the queue
			defer func() {
				<-ingestionService.ConcurrentFileIngestionQueue
			}()

			fmt.Printf("Begin running %s !\n", _fileName)
			reqStat.State = ingest.Running
			ingestionService.PublishState(reqStat)

			filePath := fmt.Sprintf("%s/%s", vcfPath, _fileName)

			beginProcessingTime := time.Now()
			fmt.Printf("Begin processing %s at [%s]\n", filePath, beginProcessingTime)

			// the request context dies with the HTTP response;
			// the ingestion run outlives it
			if processErr := ingestionService.ProcessVcf(context.Background(), filePath, reqStat); processErr != nil {
				fmt.Println(processErr)

				reqStat.State = ingest.Error
				reqStat.Message = processErr.Error()
				ingestionService.PublishState(reqStat)
				return
			}

			fmt.Printf("Ingest duration for file at %s : %s\n", filePath, time.Since(beginProcessingTime))

			reqStat.State = ingest.Done
			reqStat.Message = fmt.Sprintf("%d written, %d skipped", reqStat.VariantsWritten, reqStat.VariantsSkipped)
			ingestionService.PublishState(reqStat)
		}(fileName, newRequestState)
	}

	return c.JSON(http.StatusOK, responseDtos)
}

func GetAllVariantIngestionRequests(c echo.Context) error {
	fmt.Printf("[%s] - GetAllVariantIngestionRequests hit!\n", time.Now())
	ingestionService := c.(*contexts.TilevarContext).IngestionService

	ingestionService.IngestRequestMapMux.RLock()
	defer ingestionService.IngestRequestMapMux.RUnlock()

	// transform map of id-to-ingestRequests to an array
	m := make([]*ingest.VariantIngestRequest, 0, len(ingestionService.IngestRequestMap))
	for _, val := range ingestionService.IngestRequestMap {
		m = append(m, val)
	}
	return c.JSON(http.StatusOK, m)
}
