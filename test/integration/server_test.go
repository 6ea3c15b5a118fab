package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/davsync/internal/config"
	"github.com/sonroyaalmerol/davsync/internal/davclient"
	"github.com/sonroyaalmerol/davsync/internal/httpserver"
)

const ics = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//davsync//test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:evt1\r\n" +
	"DTSTAMP:20250101T090000Z\r\n" +
	"DTSTART:20250101T100000Z\r\n" +
	"DTEND:20250101T110000Z\r\n" +
	"SUMMARY:Test\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

const vcf = "BEGIN:VCARD\r\n" +
	"VERSION:4.0\r\n" +
	"UID:contact1\r\n" +
	"FN:John Doe\r\n" +
	"EMAIL:john@example.com\r\n" +
	"END:VCARD\r\n"

// startServer serves a fresh application on a loopback socket.
func startServer(t *testing.T, storageType, basePath string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		HTTP: config.HTTPConfig{BasePath: basePath, MaxItemBytes: 1 << 20},
		Storage: config.StorageConfig{
			Type:             storageType,
			FilesystemFolder: dir,
			SQLitePath:       dir + "/davsync.db",
			CacheTTL:         time.Second,
		},
		Rights: config.RightsConfig{Type: config.RightsOwnerOnly},
	}
	app, cleanup, err := httpserver.NewApplication(cfg, zerolog.New(zerolog.NewTestWriter(t)))
	if err != nil {
		t.Fatalf("build application: %v", err)
	}
	srv := httptest.NewServer(app)
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})
	return srv.URL
}

func TestIntegration(t *testing.T) {
	for _, storageType := range []string{config.StorageFilesystem, config.StorageSQLite} {
		t.Run(storageType, func(t *testing.T) {
			basePath := "/dav"
			baseURL := startServer(t, storageType, basePath)
			client := &http.Client{Timeout: 10 * time.Second}
			authz := basicAuth("alice", "password")

			t.Run("WellKnownRedirect", func(t *testing.T) {
				testWellKnownRedirect(t, baseURL, basePath)
			})
			t.Run("Options", func(t *testing.T) {
				testOptions(t, client, baseURL, basePath)
			})
			t.Run("BasicEventOperations", func(t *testing.T) {
				testBasicEventOperations(t, client, baseURL, basePath, authz)
			})
			t.Run("AddressbookCRUD", func(t *testing.T) {
				testAddressbookCRUD(t, client, baseURL, basePath, authz)
			})
			t.Run("ForeignCollection", func(t *testing.T) {
				testForeignCollection(t, client, baseURL, basePath, authz)
			})
			t.Run("StorageClient", func(t *testing.T) {
				testStorageClient(t, baseURL, basePath)
			})
		})
	}
}

func testWellKnownRedirect(t *testing.T, baseURL, basePath string) {
	redirClient := &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	for _, svc := range []string{"caldav", "carddav"} {
		resp, body := send(t, redirClient, "GET", baseURL+"/.well-known/"+svc, "")
		expectStatus(t, resp, body, http.StatusPermanentRedirect)
		if loc := resp.Header.Get("Location"); loc != basePath+"/" {
			t.Fatalf("well-known %s Location: %q", svc, loc)
		}
	}
}

func testOptions(t *testing.T, client *http.Client, baseURL, basePath string) {
	resp, body := send(t, client, "OPTIONS", baseURL+basePath+"/alice/", "")
	expectStatus(t, resp, body, http.StatusOK)
	got := resp.Header.Get("DAV")
	if !strings.Contains(got, "calendar-access") || !strings.Contains(got, "addressbook") {
		t.Fatalf("DAV header: %q", got)
	}
}

func testBasicEventOperations(t *testing.T, client *http.Client, baseURL, basePath, authz string) {
	coll := baseURL + basePath + "/alice/calendar/"
	resp, body := send(t, client, "MKCALENDAR", coll, "", "Authorization", authz)
	expectStatus(t, resp, body, http.StatusCreated)

	url := coll + "evt1.ics"
	resp, body = send(t, client, "PUT", url, ics,
		"Authorization", authz,
		"Content-Type", "text/calendar; charset=utf-8",
		"If-None-Match", "*")
	expectStatus(t, resp, body, http.StatusCreated)
	etag := resp.Header.Get("ETag")
	if !validETag(etag) {
		t.Fatalf("bad ETag on PUT: %q", etag)
	}

	resp, body = send(t, client, "GET", url, "", "Authorization", authz)
	expectStatus(t, resp, body, http.StatusOK)
	if string(body) != ics {
		t.Fatalf("GET changed the item: %q", string(body))
	}

	resp, body = send(t, client, "HEAD", url, "", "Authorization", authz)
	expectStatus(t, resp, body, http.StatusOK)
	if resp.Header.Get("ETag") != etag {
		t.Fatalf("HEAD ETag %q, want %q", resp.Header.Get("ETag"), etag)
	}

	query := `<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
 <D:prop><D:getetag/><C:calendar-data/></D:prop>
 <C:filter><C:comp-filter name="VCALENDAR"/></C:filter>
</C:calendar-query>`
	resp, body = send(t, client, "REPORT", coll, query, "Authorization", authz, "Content-Type", "application/xml")
	expectStatus(t, resp, body, http.StatusMultiStatus)
	ms, err := parseMultiStatus(body)
	if err != nil {
		t.Fatalf("parse calendar-query: %v", err)
	}
	if len(ms.Responses) != 1 || !statusOK(ms.Responses[0].PropStat[0].Status) {
		t.Fatalf("calendar-query responses: %+v", ms.Responses)
	}
	if !strings.Contains(ms.Responses[0].PropStat[0].PropRaw.Inner, "SUMMARY:Test") {
		t.Fatalf("calendar-query missing data: %s", ms.Responses[0].PropStat[0].PropRaw.Inner)
	}

	resp, body = send(t, client, "DELETE", url, "", "Authorization", authz, "If-Match", `"stale"`)
	expectStatus(t, resp, body, http.StatusPreconditionFailed)
	resp, body = send(t, client, "DELETE", url, "", "Authorization", authz, "If-Match", etag)
	expectStatus(t, resp, body, http.StatusNoContent)
	resp, body = send(t, client, "GET", url, "", "Authorization", authz)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func testAddressbookCRUD(t *testing.T, client *http.Client, baseURL, basePath, authz string) {
	coll := baseURL + basePath + "/alice/contacts/"
	url := coll + "contact1.vcf"

	resp, body := send(t, client, "PUT", url, vcf, "Authorization", authz, "Content-Type", "text/vcard")
	expectStatus(t, resp, body, http.StatusCreated)

	resp, body = send(t, client, "PROPFIND", coll, "", "Authorization", authz, "Depth", "1")
	expectStatus(t, resp, body, http.StatusMultiStatus)
	ms, err := parseMultiStatus(body)
	if err != nil {
		t.Fatalf("parse propfind: %v", err)
	}
	if len(ms.Responses) != 2 {
		t.Fatalf("propfind: %d responses, want collection and one card", len(ms.Responses))
	}
	if !strings.Contains(ms.Responses[0].PropStat[0].PropRaw.Inner, "addressbook") {
		t.Fatalf("implicit collection is not an addressbook: %s", ms.Responses[0].PropStat[0].PropRaw.Inner)
	}
	if ms.Responses[1].Href != basePath+"/alice/contacts/contact1.vcf" {
		t.Fatalf("member href: %s", ms.Responses[1].Href)
	}

	multiget := `<?xml version="1.0" encoding="utf-8" ?>
<C:addressbook-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">
 <D:prop><D:getetag/><C:address-data/></D:prop>
 <D:href>` + basePath + `/alice/contacts/contact1.vcf</D:href>
 <D:href>` + basePath + `/alice/contacts/nobody.vcf</D:href>
</C:addressbook-multiget>`
	resp, body = send(t, client, "REPORT", coll, multiget, "Authorization", authz, "Depth", "1")
	expectStatus(t, resp, body, http.StatusMultiStatus)
	ms, err = parseMultiStatus(body)
	if err != nil {
		t.Fatalf("parse multiget: %v", err)
	}
	if len(ms.Responses) != 2 {
		t.Fatalf("multiget: %d responses", len(ms.Responses))
	}
	if !strings.Contains(ms.Responses[1].Status, " 404 ") {
		t.Fatalf("missing card status: %q", ms.Responses[1].Status)
	}

	resp, body = send(t, client, "PUT", coll+"broken.vcf", "BEGIN:VCARD\r\nEND:VCARD\r\n", "Authorization", authz)
	expectStatus(t, resp, body, http.StatusBadRequest)
}

func testForeignCollection(t *testing.T, client *http.Client, baseURL, basePath, authz string) {
	url := baseURL + basePath + "/bob/calendar/evt1.ics"
	resp, body := send(t, client, "PUT", url, ics, "Authorization", authz)
	expectStatus(t, resp, body, http.StatusForbidden)

	resp, body = send(t, client, "PROPFIND", baseURL+basePath+"/alice/", "")
	expectStatus(t, resp, body, http.StatusUnauthorized)
}

// testStorageClient drives davclient over the network session.
func testStorageClient(t *testing.T, baseURL, basePath string) {
	ctx := context.Background()
	s, err := davclient.NewCalDAV(davclient.Options{
		URL:      baseURL + basePath + "/alice/sync/",
		Username: "alice",
		Password: "password",
	})
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}

	href, etag, err := s.Upload(ctx, davclient.Item{Raw: ics})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	listing, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listing) != 1 || listing[0].Href != href || listing[0].ETag != etag {
		t.Fatalf("listing %+v, want %s %s", listing, href, etag)
	}
	item, _, err := s.Get(ctx, href)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if item.Raw != ics {
		t.Fatalf("item changed over the wire: %q", item.Raw)
	}
	if _, _, err := s.Upload(ctx, davclient.Item{Raw: ics}); !errors.Is(err, davclient.ErrAlreadyExisting) {
		t.Fatalf("second upload: %v", err)
	}
	if err := s.Delete(ctx, href, etag); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
