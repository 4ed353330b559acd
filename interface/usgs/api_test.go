package usgs_test

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/airbusgeo/usgsxplore/common"
	"github.com/airbusgeo/usgsxplore/interface/usgs"
)

var _ = Describe("API", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		m2m.reset()
		m2m.scenes = makeScenes(150)
	})

	Describe("Login", func() {
		It("should log in and hold a session token", func() {
			api, err := usgs.NewCustomAPI(ctx, m2m.srv.URL, "user", "pass")
			Expect(err).NotTo(HaveOccurred())
			Expect(api.LoggedIn()).To(BeTrue())
			Expect(m2m.logins).To(Equal(1))
		})

		It("should reject bad credentials with ErrInvalidCredentials", func() {
			_, err := usgs.NewCustomAPI(ctx, m2m.srv.URL, "user", "wrong")
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, usgs.ErrInvalidCredentials)).To(BeTrue())
		})

		It("should end the session on logout even if the call fails", func() {
			api, err := usgs.NewCustomAPI(ctx, m2m.srv.URL, "user", "pass")
			Expect(err).NotTo(HaveOccurred())
			m2m.tokenValid = false
			Expect(api.Logout(ctx)).To(Succeed())
			Expect(api.LoggedIn()).To(BeFalse())
		})
	})

	Describe("Session lifecycle", func() {
		It("should re-authenticate once when the session expires", func() {
			api, err := usgs.NewCustomAPI(ctx, m2m.srv.URL, "user", "pass")
			Expect(err).NotTo(HaveOccurred())

			m2m.tokenValid = false
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatOtC2L2, Limit: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(5))
			Expect(m2m.logins).To(Equal(2))
		})

		It("should retry a rate-limited call once after a pause", func() {
			prev := usgs.SetRateLimitWait(10 * time.Millisecond)
			defer usgs.SetRateLimitWait(prev)

			api, err := usgs.NewCustomAPI(ctx, m2m.srv.URL, "user", "pass")
			Expect(err).NotTo(HaveOccurred())

			m2m.rateLimitNext = true
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatOtC2L2, Limit: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(5))
			Expect(m2m.calls["scene-search"]).To(Equal(2))
			Expect(m2m.logins).To(Equal(1))
		})
	})

	Describe("Search", func() {
		var api *usgs.API

		BeforeEach(func() {
			var err error
			api, err = usgs.NewCustomAPI(ctx, m2m.srv.URL, "user", "pass")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should honor the limit and not over-fetch", func() {
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatOtC2L2, Limit: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(5))
			Expect(m2m.calls["scene-search"]).To(Equal(1))
		})

		It("should paginate past the catalog page size, preserving order", func() {
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatOtC2L2, Limit: 120})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(120))
			Expect(m2m.calls["scene-search"]).To(Equal(2))
			for i, record := range records {
				Expect(record.DisplayID).To(HavePrefix("LC08_L2SP_"))
				Expect(record.CloudCover).To(Equal(i % 100))
			}
		})

		It("should return no record at all when a page fetch fails", func() {
			m2m.failSearchAt = 2
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatOtC2L2, Limit: 120})
			Expect(err).To(HaveOccurred())
			Expect(records).To(BeNil())
			var apiErr usgs.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Code).To(Equal("SERVER_ERROR"))
			Expect(m2m.calls["scene-search"]).To(Equal(2))
		})

		It("should drop the Landsat 4 scenes served by the Landsat 5 dataset", func() {
			m2m.scenes = []json.RawMessage{
				json.RawMessage(`{"entityId": "LT41960301990123XXX00", "displayId": "LT04_L2SP_196030_19900503_20200820_02_T1", "cloudCover": 10, "metadata": [{"fieldName": "Date Acquired", "value": "1990/05/03"}]}`),
				json.RawMessage(`{"entityId": "LT51960301990123XXX00", "displayId": "LT05_L2SP_196030_19900503_20200820_02_T1", "cloudCover": 12, "metadata": [{"fieldName": "Date Acquired", "value": "1990/05/03"}]}`),
			}
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatTmC2L2})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].EntityID).To(Equal("LT51960301990123XXX00"))
		})

		It("should normalize a scene identically whatever the page serving it", func() {
			scenes := makeScenes(150)
			scenes[100] = scenes[0]
			m2m.scenes = scenes
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatOtC2L2, Limit: 120})
			Expect(err).NotTo(HaveOccurred())
			Expect(records[100]).To(Equal(records[0]))
		})

		It("should reject a non-200 response even when its body parses as an envelope", func() {
			m2m.proxyNext = true
			datasets, err := api.Datasets(ctx, "landsat_ot_c2_l2")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("502"))
			Expect(datasets).To(BeEmpty())
		})

		It("should stop when the catalog is exhausted before the limit", func() {
			records, err := api.Search(ctx, usgs.SearchQuery{Dataset: common.LandsatOtC2L2, Limit: 500})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(150))
		})

		It("should fail fast on an invalid query without any network access", func() {
			_, err := api.Search(ctx, usgs.SearchQuery{Dataset: "not_a_dataset"})
			Expect(err).To(HaveOccurred())
			Expect(m2m.calls["scene-search"]).To(Equal(0))
		})

		It("should list the catalog datasets", func() {
			datasets, err := api.Datasets(ctx, "landsat_ot_c2_l2")
			Expect(err).NotTo(HaveOccurred())
			Expect(datasets).To(HaveLen(1))
			Expect(datasets[0].DatasetAlias).To(Equal("landsat_ot_c2_l2"))
		})
	})

	Describe("Scene ids", func() {
		var api *usgs.API

		BeforeEach(func() {
			var err error
			api, err = usgs.NewCustomAPI(ctx, m2m.srv.URL, "user", "pass")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should translate display ids through a temporary scene list", func() {
			ids, err := api.EntityIDs(ctx, common.LandsatOtC2L2, "LC08_L2SP_096046_20200411_20200822_02_T1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{"E-LC08_L2SP_096046_20200411_20200822_02_T1"}))
			// the temporary list must not leak
			Expect(m2m.sceneLists).To(BeEmpty())
		})

		It("should fetch the display id from the scene metadata", func() {
			displayID, err := api.DisplayID(ctx, common.LandsatOtC2L2, "LC800000000000000000")
			Expect(err).NotTo(HaveOccurred())
			Expect(displayID).To(Equal("LC08_L2SP_000000_20200411_20200822_02_T1"))
		})
	})
})
