package receipt

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FromText", func() {
	var (
		text string
		now  time.Time
		r    Receipt
	)

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		r = FromText("local-1", text, now)
	})

	When("the text has several lines", func() {
		BeforeEach(func() {
			text = "Service: ShopMall\r\n\n  Marketing consent renewed  \nWe keep data for 3 years\nExtra line"
		})

		It("uses the first line without the prefix as service and entity", func() {
			Expect(r.ServiceName).To(Equal("ShopMall"))
			Expect(r.EntityName).To(Equal("ShopMall"))
		})

		It("uses the second non-blank line as summary", func() {
			Expect(r.Summary).To(Equal("Marketing consent renewed"))
		})

		It("quotes the first three lines as evidence", func() {
			Expect(r.Evidence).To(Equal([]Evidence{{
				Field: "summary",
				Quote: "Service: ShopMall Marketing consent renewed We keep data for 3 years",
				Why:   "Excerpted from the top of the input text",
			}}))
		})

		It("fills local-mode defaults", func() {
			Expect(r.ID).To(Equal("local-1"))
			Expect(r.DocType).To(Equal(DocTypeNotice))
			Expect(r.Category).To(Equal(CategoryGeneral))
			Expect(r.Retention).To(Equal("Needs review"))
			Expect(r.RetentionDays).To(BeZero())
			Expect(r.RevokePath).To(BeNil())
			Expect(r.DataItems).To(Equal([]string{Unclassified}))
			Expect(r.ReceivedAt).To(Equal("2026-03-01T09:30:00Z"))
		})

		It("satisfies the receipt contract", func() {
			Expect(Validate(r)).To(Succeed())
		})
	})

	When("the text is blank", func() {
		BeforeEach(func() {
			text = "   \n\t"
		})

		It("falls back to placeholder names", func() {
			Expect(r.ServiceName).To(Equal("Untitled Consent"))
			Expect(r.Summary).To(Equal("Summary generated from the provided text."))
		})

		It("quotes the raw input", func() {
			Expect(r.Evidence[0].Quote).To(Equal(text))
		})
	})

	When("the first line is only the prefix", func() {
		BeforeEach(func() {
			text = "Service:\nsecond"
		})

		It("uses unknown sentinels", func() {
			Expect(r.ServiceName).To(Equal(UnknownService))
			Expect(r.EntityName).To(Equal(UnknownEntity))
		})
	})

	Describe("truncateRunes", func() {
		It("cuts on rune boundaries", func() {
			s := strings.Repeat("가", 130)
			Expect([]rune(truncateRunes(s, 120))).To(HaveLen(120))
		})

		It("leaves short strings alone", func() {
			Expect(truncateRunes("abc", 120)).To(Equal("abc"))
		})
	})
})
