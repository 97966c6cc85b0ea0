package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/receiptos/receiptos/internal/backend"
	"github.com/receiptos/receiptos/internal/receipt"
	"github.com/receiptos/receiptos/internal/scanning"
	"github.com/receiptos/receiptos/internal/server"
	"github.com/receiptos/receiptos/internal/service"
)

// photoScanner stands in for a vision model
type photoScanner struct {
	transcript string
	calls      int
}

func (p *photoScanner) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	p.calls++
	return p.transcript, nil
}

func (p *photoScanner) Close() error {
	return nil
}

type viewedReceipt struct {
	receipt.Receipt
	RiskLevel receipt.RiskLevel `json:"risk_level"`
}

func upload(url, filename string, data []byte) *http.Response {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())

	req, err := http.NewRequest(http.MethodPost, url+"/api/ingest/file", body)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

var _ = Describe("Integration", func() {
	var (
		dbPath     string
		store      *receipt.BoltStore
		scanner    *photoScanner
		backendAPI *ghttp.Server
		ghServer   *ghttp.Server
		err        error
	)

	newServer := func(local bool) *server.Server {
		svc := service.NewService(store, backend.NewClient(backendAPI.URL(), 0), local)
		return server.NewServer(svc, scanning.NewExtractor(scanner), receipt.DefaultClassifier, server.BasicAuth{})
	}

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "integration.db")
		store, err = receipt.NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())

		scanner = &photoScanner{transcript: "```\nService: PayFast\n수집 항목: 이름, 계좌번호\n보유기간: 5년\n```"}
		backendAPI = ghttp.NewServer()
		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghServer.Close()
		backendAPI.Close()
		if store != nil {
			store.Close()
		}
	})

	It("transcribes a photo, ingests it on the backend and labels the normalized receipt", func() {
		backendAPI.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/api/ingest"),
			ghttp.VerifyJSONRepresenting(backend.IngestRequest{
				RawText:    "Service: PayFast\n수집 항목: 이름, 계좌번호\n보유기간: 5년",
				SourceType: "image",
			}),
			ghttp.RespondWith(http.StatusCreated, `{
				"receipt": {
					"receipt_id": "rcpt-77",
					"document_type": "consent",
					"created_at": "2026-05-01T10:00:00Z",
					"seven_lines": {"what": "PayFast", "who": "PayFast Inc.", "when": "5년", "how_to_revoke": "앱 > 설정 > 동의 철회"},
					"fields": {
						"data_items": {"value": ["이름", "계좌번호"], "evidence": [{"quote": "수집 항목: 이름, 계좌번호", "location": "photo"}]},
						"보유기간": {"value": "5년"}
					},
					"signals": []
				},
				"extract_result": {}
			}`),
		))
		ghServer.AppendHandlers(newServer(false).ServeHTTP)

		resp := upload(ghServer.URL(), "IMG_2040.png", []byte("\x89PNG\r\n\x1a\nfake"))
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(scanner.calls).To(Equal(1))

		var created viewedReceipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		Expect(created.ID).To(Equal("rcpt-77"))
		Expect(created.EntityName).To(Equal("PayFast Inc."))
		Expect(created.DocType).To(Equal(receipt.DocTypeConsent))
		Expect(created.RetentionDays).To(Equal(1825))
		Expect(created.DataItems).To(Equal([]string{"이름", "계좌번호"}))
		Expect(created.Evidence).To(ConsistOf(receipt.Evidence{
			Field: "data_items",
			Quote: "수집 항목: 이름, 계좌번호",
			Why:   "Extracted from photo",
		}))
		Expect(created.RiskLevel).To(Equal(receipt.RiskHigh))

		// Backend mode never touches the local store
		receipts, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(receipts).To(BeEmpty())
	})

	It("keeps locally created receipts across restarts until they are deleted", func() {
		ghServer.AppendHandlers(newServer(true).ServeHTTP)

		resp := upload(ghServer.URL(), "consent.txt", []byte("Service: StudyHub\n수업 기록 1개월 보관"))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		var created viewedReceipt
		Expect(json.NewDecoder(resp.Body).Decode(&created)).To(Succeed())
		resp.Body.Close()
		Expect(scanner.calls).To(BeZero())

		// Reopen the store as a restart would
		Expect(store.Close()).To(Succeed())
		store, err = receipt.NewBoltStore(dbPath)
		Expect(err).NotTo(HaveOccurred())

		ghServer.AppendHandlers(newServer(true).ServeHTTP, newServer(true).ServeHTTP, newServer(true).ServeHTTP)

		getResp, err := http.Get(ghServer.URL() + "/api/receipts/" + created.ID)
		Expect(err).NotTo(HaveOccurred())
		var fetched viewedReceipt
		Expect(json.NewDecoder(getResp.Body).Decode(&fetched)).To(Succeed())
		getResp.Body.Close()
		Expect(fetched.Receipt).To(Equal(created.Receipt))
		Expect(fetched.RiskLevel).To(Equal(receipt.RiskMedium))

		req, err := http.NewRequest(http.MethodDelete, ghServer.URL()+"/api/receipts/"+created.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		delResp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		delResp.Body.Close()
		Expect(delResp.StatusCode).To(Equal(http.StatusNoContent))

		listResp, err := http.Get(ghServer.URL() + "/api/receipts")
		Expect(err).NotTo(HaveOccurred())
		var listed []viewedReceipt
		Expect(json.NewDecoder(listResp.Body).Decode(&listed)).To(Succeed())
		listResp.Body.Close()
		Expect(listed).To(BeEmpty())
	})
})
