package receipt

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/text/unicode/norm"
)

// lowRiskReceipt trips none of the classifier's triggers
func lowRiskReceipt() Receipt {
	return Receipt{
		ID:                 "r-1",
		ServiceName:        "Newsletter",
		DataItems:          []string{"Email address"},
		RetentionDays:      30,
		RevokePath:         StringPtr("Settings > Privacy > Unsubscribe"),
		ThirdPartyServices: []string{},
		Transfers:          []Transfer{},
		Summary:            "Weekly newsletter sign-up",
	}
}

var _ = Describe("Classifier", func() {
	var (
		r     Receipt
		level RiskLevel
	)

	BeforeEach(func() {
		r = lowRiskReceipt()
	})

	JustBeforeEach(func() {
		level = Classify(r)
	})

	When("nothing is flagged", func() {
		It("classifies LOW", func() {
			Expect(level).To(Equal(RiskLow))
		})
	})

	When("a data item names an OTP and retention is long", func() {
		BeforeEach(func() {
			r.DataItems = []string{"OTP 번호"}
			r.RetentionDays = 400
		})

		It("classifies HIGH rather than MED", func() {
			Expect(level).To(Equal(RiskHigh))
		})
	})

	DescribeTable("sensitive data items",
		func(item string) {
			r.DataItems = []string{"Email address", item}
			Expect(Classify(r)).To(Equal(RiskHigh))
		},
		Entry("bank account", "계좌번호"),
		Entry("resident registration number", "주민등록번호"),
		Entry("password", "비밀번호"),
		Entry("otp in upper case", "SMS OTP"),
		Entry("decomposed hangul", norm.NFD.String("계좌번호")),
	)

	When("the summary mentions a bank account", func() {
		BeforeEach(func() {
			r.Summary = "자동이체 계좌 등록"
		})

		It("classifies HIGH", func() {
			Expect(level).To(Equal(RiskHigh))
		})
	})

	When("the summary mentions a password only", func() {
		BeforeEach(func() {
			r.Summary = "비밀번호 변경 안내"
		})

		It("stays LOW because only items are checked for passwords", func() {
			Expect(level).To(Equal(RiskLow))
		})
	})

	When("over-collection is flagged", func() {
		BeforeEach(func() {
			r.OverCollection = true
		})

		It("classifies HIGH", func() {
			Expect(level).To(Equal(RiskHigh))
		})
	})

	When("retention is exactly one year", func() {
		BeforeEach(func() {
			r.RetentionDays = 365
		})

		It("classifies MED", func() {
			Expect(level).To(Equal(RiskMedium))
		})
	})

	When("retention is one day short of a year", func() {
		BeforeEach(func() {
			r.RetentionDays = 364
		})

		It("classifies LOW", func() {
			Expect(level).To(Equal(RiskLow))
		})
	})

	When("data is shared with a third party", func() {
		BeforeEach(func() {
			r.ThirdPartyServices = []string{"Ad Partner"}
		})

		It("classifies MED", func() {
			Expect(level).To(Equal(RiskMedium))
		})
	})

	When("a transfer goes overseas", func() {
		BeforeEach(func() {
			r.Transfers = []Transfer{{Type: TransferOverseas, Destination: "US", IsOverseas: true}}
		})

		It("classifies MED", func() {
			Expect(level).To(Equal(RiskMedium))
		})
	})

	When("there is no revocation path", func() {
		BeforeEach(func() {
			r.RevokePath = nil
		})

		It("classifies MED", func() {
			Expect(level).To(Equal(RiskMedium))
		})
	})

	When("the revocation path is empty", func() {
		BeforeEach(func() {
			r.RevokePath = StringPtr("")
		})

		It("classifies MED", func() {
			Expect(level).To(Equal(RiskMedium))
		})
	})

	When("the revocation path needs clarification", func() {
		BeforeEach(func() {
			r.RevokePath = StringPtr("Needs clarification")
		})

		It("classifies MED", func() {
			Expect(level).To(Equal(RiskMedium))
		})
	})

	When("the revocation path is flagged in Korean", func() {
		BeforeEach(func() {
			r.RevokePath = StringPtr("철회 경로 명확화 필요")
		})

		It("classifies MED", func() {
			Expect(level).To(Equal(RiskMedium))
		})
	})

	Describe("WithItemKeywords", func() {
		It("adds keywords without touching the default", func() {
			c := DefaultClassifier.WithItemKeywords(" passport ", "")
			r.DataItems = []string{"Passport number"}

			Expect(c.Classify(r)).To(Equal(RiskHigh))
			Expect(DefaultClassifier.Classify(r)).To(Equal(RiskLow))
			Expect(c.SensitiveItems).To(HaveLen(len(DefaultClassifier.SensitiveItems) + 1))
		})
	})
})
