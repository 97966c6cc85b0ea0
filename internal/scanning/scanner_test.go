package scanning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

// mockScanner is a mock implementation of Scanner
type mockScanner struct {
	text        string
	err         error
	calls       int
	contentType string
}

func (m *mockScanner) Transcribe(_ context.Context, _ []byte, contentType string) (string, error) {
	m.calls++
	m.contentType = contentType
	return m.text, m.err
}

func (m *mockScanner) Close() error {
	return nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func pngBytes() []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, testImage())).To(Succeed())
	return buf.Bytes()
}

func jpegBytes() []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, testImage(), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Extractor", func() {
	var (
		ctx       context.Context
		scanner   *mockScanner
		extractor *Extractor
	)

	BeforeEach(func() {
		ctx = context.Background()
		scanner = &mockScanner{text: "```\nShopMall 약관\n```"}
		extractor = NewExtractor(scanner)
	})

	When("the upload is plain text", func() {
		It("returns the cleaned text without the scanner", func() {
			text, source, err := extractor.ExtractText(ctx, []byte("Service: ShopMall  \r\n동의합니다\r\n"), "text/plain; charset=utf-8")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Service: ShopMall\n동의합니다"))
			Expect(source).To(Equal("text"))
			Expect(scanner.calls).To(BeZero())
		})

		It("keeps text the user wrote even when it reads like a model answer", func() {
			text, source, err := extractor.ExtractText(ctx, []byte("none\n"), "text/plain")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("none"))
			Expect(source).To(Equal("text"))
		})

		It("reports an empty file", func() {
			_, _, err := extractor.ExtractText(ctx, []byte("\r\n  \r\n"), "text/plain")
			Expect(err).To(MatchError(ErrNoText))
		})

		It("rejects bytes that are not UTF-8", func() {
			_, _, err := extractor.ExtractText(ctx, []byte{0xff, 0xfe, 0x00}, "text/plain")
			Expect(errors.Is(err, ErrUnsupportedType)).To(BeTrue())
		})
	})

	When("the upload is an email", func() {
		It("reads it as email", func() {
			msg := "Subject: Terms update\r\nContent-Type: text/plain\r\n\r\nWe changed our policy.\r\n"
			text, source, err := extractor.ExtractText(ctx, []byte(msg), "message/rfc822")
			Expect(err).NotTo(HaveOccurred())
			Expect(source).To(Equal("email"))
			Expect(text).To(Equal("Subject: Terms update\n\nWe changed our policy."))
		})
	})

	When("the upload is an image", func() {
		It("transcribes it with the scanner", func() {
			text, source, err := extractor.ExtractText(ctx, pngBytes(), "IMAGE/PNG")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("ShopMall 약관"))
			Expect(source).To(Equal("image"))
			Expect(scanner.contentType).To(Equal("image/png"))
		})

		It("propagates scanner failures", func() {
			scanner.err = errors.New("quota exceeded")
			_, _, err := extractor.ExtractText(ctx, pngBytes(), "image/png")
			Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
		})

		It("reports an image with no text", func() {
			scanner.text = "NO_TEXT"
			_, _, err := extractor.ExtractText(ctx, pngBytes(), "image/jpeg")
			Expect(err).To(MatchError(ErrNoText))
		})

		It("needs a scanner", func() {
			_, _, err := NewExtractor(nil).ExtractText(ctx, pngBytes(), "image/png")
			Expect(err).To(MatchError(ErrNoScanner))
		})
	})

	When("the upload type is unknown", func() {
		It("returns ErrUnsupportedType", func() {
			_, _, err := extractor.ExtractText(ctx, []byte("PK"), "application/zip")
			Expect(errors.Is(err, ErrUnsupportedType)).To(BeTrue())
			Expect(scanner.calls).To(BeZero())
		})
	})
})

var _ = Describe("prepareImageData", func() {
	It("passes PNG through unchanged", func() {
		data := pngBytes()
		out, err := prepareImageData(data, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("converts JPEG to PNG", func() {
		out, err := prepareImageData(jpegBytes(), "image/jpeg")
		Expect(err).NotTo(HaveOccurred())
		_, format, err := image.Decode(bytes.NewReader(out))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
	})

	It("rejects data that is not an image", func() {
		_, err := prepareImageData([]byte("not an image"), "image/webp")
		Expect(errors.Is(err, ErrUnsupportedType)).To(BeTrue())
	})
})

var _ = Describe("isHEICFormat", func() {
	It("recognizes an ftyp heic box", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
	})

	It("ignores short or other data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
		Expect(isHEICFormat(pngBytes())).To(BeFalse())
	})
})

var _ = Describe("Ollama", func() {
	var (
		server *ghttp.Server
		ollama *Ollama
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		ollama, err = NewOllama(server.URL(), "qwen2-vl:7b")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	When("the server answers", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var body ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
					Expect(body.Model).To(Equal("qwen2-vl:7b"))
					Expect(body.Stream).To(BeFalse())
					Expect(body.Messages).To(HaveLen(2))
					Expect(body.Messages[1].Content).To(Equal(transcribePrompt))
					Expect(body.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "수집 항목: 이름"},
					Done:    true,
				}),
			))
		})

		It("returns the model's transcript", func() {
			text, err := ollama.Transcribe(context.Background(), pngBytes(), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("수집 항목: 이름"))
		})
	})

	When("the server fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the status and body", func() {
			_, err := ollama.Transcribe(context.Background(), pngBytes(), "image/png")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("status 500"))
			Expect(err.Error()).To(ContainSubstring("model not loaded"))
		})
	})
})

var _ = Describe("mediaTypeOf", func() {
	It("drops parameters and case", func() {
		Expect(mediaTypeOf(" Text/HTML; charset=EUC-KR")).To(Equal("text/html"))
		Expect(mediaTypeOf("image/png")).To(Equal("image/png"))
		Expect(mediaTypeOf("")).To(Equal(""))
		Expect(strings.Contains(mediaTypeOf("weird;;"), ";")).To(BeFalse())
	})
})
