package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/HaydarovAkbar/HikVision/internal/config"
	"github.com/HaydarovAkbar/HikVision/internal/xmltree"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deviceInfoXML = `<?xml version="1.0" encoding="UTF-8"?>
<DeviceInfo version="2.0" xmlns="http://www.hikvision.com/ver20/XMLSchema">
<deviceName>Main Entrance</deviceName>
<deviceID>48a0c7a2-1dd2-11b2-8e17-c056e3a1b2c3</deviceID>
<model>DS-K1T341CM</model>
<serialNumber>DS-K1T341CM20230101V030000ENJ12345678</serialNumber>
<firmwareVersion>V3.2.30</firmwareVersion>
</DeviceInfo>`

func testConfig(t *testing.T, rawURL string, retries int) *config.Config {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	v := viper.New()
	config.Configure(v)
	v.Set("host", host)
	v.Set("port", port)
	v.Set("retry_count", retries)
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *HikvisionClient {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]Option{
		WithLogger(logger),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}, opts...)
	return New(testConfig(t, srv.URL, 2), opts...)
}

func TestGetDeviceInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/ISAPI/System/deviceInfo", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		fmt.Fprint(w, deviceInfoXML)
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv).GetDeviceInfo(context.Background())
	require.NoError(t, err)

	info, ok := doc.Child("DeviceInfo")
	require.True(t, ok)
	model, _ := info.Scalar("model")
	assert.Equal(t, "DS-K1T341CM", model)
	version, _ := info.Scalar("version")
	assert.Equal(t, "2.0", version)
}

func TestRequestLogsAtDebug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, deviceInfoXML)
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c := New(testConfig(t, srv.URL, 0), WithLogger(logger))

	_, err := c.GetDeviceInfo(context.Background())
	require.NoError(t, err)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "isapi request" {
			found = true
			assert.Equal(t, logrus.DebugLevel, e.Level)
			assert.Equal(t, http.MethodGet, e.Data["method"])
			assert.Equal(t, srv.URL+"/ISAPI/System/deviceInfo", e.Data["url"])
		}
	}
	assert.True(t, found)
}

func TestRequestFailedIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetDeviceInfo(context.Background())

	var failed *RequestFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, http.StatusNotFound, failed.StatusCode)
	assert.Equal(t, srv.URL+"/ISAPI/System/deviceInfo", failed.URL)
	assert.False(t, failed.IsAuth())
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestMalformedResponse(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		fmt.Fprint(w, "<DeviceInfo><model>broken</DeviceInfo>")
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetDeviceInfo(context.Background())

	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestTransportErrorIsRetried(t *testing.T) {
	var attempts int32
	refused := errors.New("dial tcp 172.18.18.60:80: connect: connection refused")
	rt := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, refused
	})

	logger, _ := test.NewNullLogger()
	v := viper.New()
	config.Configure(v)
	v.Set("retry_count", 2)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	c := New(cfg,
		WithTransport(rt),
		WithLogger(logger),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
	_, err = c.GetDeviceInfo(context.Background())

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, refused)
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestUnknownResource(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := newTestClient(t, srv).Request(context.Background(), http.MethodGet, "playback")
	assert.ErrorIs(t, err, ErrUnknownResource)
}

func TestDigestAuthentication(t *testing.T) {
	var authorized int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			w.Header().Set("WWW-Authenticate",
				`Digest realm="DS-K1T341CM", nonce="dcd98b7102dd2f0e8b11d0f600bfb0c093", qop="auth", algorithm=MD5`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.True(t, strings.HasPrefix(auth, "Digest "))
		assert.Contains(t, auth, `username="admin"`)
		assert.Contains(t, auth, `realm="DS-K1T341CM"`)
		atomic.AddInt32(&authorized, 1)
		fmt.Fprint(w, deviceInfoXML)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).Ping(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&authorized))
}

func TestPingUnexpectedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ResponseStatus><statusCode>1</statusCode></ResponseStatus>`)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).Ping(context.Background())
	assert.ErrorIs(t, err, ErrNotDeviceInfo)
}

func TestDoorControlBody(t *testing.T) {
	body, err := DoorControlBody(DoorOpen)
	require.NoError(t, err)
	assert.Equal(t, "<RemoteControlDoor><cmd>open</cmd></RemoteControlDoor>", string(body))

	_, err = DoorControlBody("unlock")
	assert.ErrorIs(t, err, ErrInvalidDoorCommand)
}

func TestControlDoor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/ISAPI/AccessControl/RemoteControl/door/1", r.URL.Path)
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "<RemoteControlDoor><cmd>open</cmd></RemoteControlDoor>", string(body))
		fmt.Fprint(w, `<ResponseStatus><statusCode>1</statusCode><statusString>OK</statusString></ResponseStatus>`)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).ControlDoor(context.Background(), 1, DoorOpen)
	assert.NoError(t, err)
}

func TestControlDoorRejectsUnknownCommand(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	err := newTestClient(t, srv).ControlDoor(context.Background(), 1, DoorCommand("unlock"))
	assert.ErrorIs(t, err, ErrInvalidDoorCommand)
	assert.EqualValues(t, 0, atomic.LoadInt32(&hits))
}

func TestGetDoorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISAPI/AccessControl/Door/2/status", r.URL.Path)
		fmt.Fprint(w, `<DoorStatus><doorNo>2</doorNo><doorLockStatus>close</doorLockStatus></DoorStatus>`)
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv).GetDoorStatus(context.Background(), 2)
	require.NoError(t, err)
	status, ok := doc.Child("DoorStatus")
	require.True(t, ok)
	lock, _ := status.Scalar("doorLockStatus")
	assert.Equal(t, "close", lock)
}

func TestGetAccessEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISAPI/AccessControl/AcsEvent", r.URL.Path)
		assert.Equal(t, "2024-05-01T00:00:00+05:00", r.URL.Query().Get("startTime"))
		assert.False(t, r.URL.Query().Has("endTime"))
		fmt.Fprint(w, `<AcsEventList>
			<AcsEvent><major>5</major><minor>75</minor><time>2024-05-01T08:00:00+05:00</time></AcsEvent>
			<AcsEvent><major>5</major><minor>76</minor><time>2024-05-01T08:01:00+05:00</time></AcsEvent>
		</AcsEventList>`)
	}))
	defer srv.Close()

	events, err := newTestClient(t, srv).GetAccessEvents(context.Background(), "2024-05-01T00:00:00+05:00", "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	second := events[1].(*xmltree.Map)
	minor, _ := second.Scalar("minor")
	assert.Equal(t, "76", minor)
}

func TestGetCardsSingleAndMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISAPI/AccessControl/CardInfo/12345":
			fmt.Fprint(w, `<CardInfoList><CardInfo><cardNo>12345</cardNo><employeeNo>7</employeeNo></CardInfo></CardInfoList>`)
		case "/ISAPI/AccessControl/CardInfo":
			fmt.Fprint(w, `<CardInfoList/>`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	cards, err := c.GetCards(context.Background(), "12345")
	require.NoError(t, err)
	require.Len(t, cards, 1)

	cards, err = c.GetCards(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestGetUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISAPI/AccessControl/UserInfo/42", r.URL.Path)
		fmt.Fprint(w, `<UserInfoList><UserInfo><employeeNo>42</employeeNo><name>Akbar</name></UserInfo></UserInfoList>`)
	}))
	defer srv.Close()

	users, err := newTestClient(t, srv).GetUsers(context.Background(), "42")
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestGetChannelsAndPTZ(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ISAPI/System/Video/inputs":
			fmt.Fprint(w, `<VideoInputChannelList><VideoInputChannel><id>1</id></VideoInputChannel></VideoInputChannelList>`)
		case "/ISAPI/Streaming/channels":
			fmt.Fprint(w, `<StreamingChannelList><StreamingChannel><id>101</id></StreamingChannel><StreamingChannel><id>102</id></StreamingChannel></StreamingChannelList>`)
		case "/ISAPI/PTZCtrl/channels/1/capabilities":
			fmt.Fprint(w, `<PTZData><pan>true</pan></PTZData>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := newTestClient(t, srv)
	ctx := context.Background()

	channels, err := c.GetChannels(ctx)
	require.NoError(t, err)
	assert.Len(t, channels, 1)

	streaming, err := c.GetStreamingChannels(ctx)
	require.NoError(t, err)
	assert.Len(t, streaming, 2)

	ptz, err := c.GetPTZInfo(ctx, 1)
	require.NoError(t, err)
	_, ok := ptz.Child("PTZData")
	assert.True(t, ok)
}

func TestWatchAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ISAPI/Event/notification/alertStream", r.URL.Path)
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/mixed; boundary="+mw.Boundary())

		write := func(ct, body string) {
			h := textproto.MIMEHeader{}
			h.Set("Content-Type", ct)
			pw, err := mw.CreatePart(h)
			if !assert.NoError(t, err) {
				return
			}
			_, err = io.WriteString(pw, body)
			assert.NoError(t, err)
		}
		write(`application/xml; charset="UTF-8"`, `<EventNotificationAlert><eventType>videoloss</eventType><channelID>1</channelID></EventNotificationAlert>`)
		write("image/jpeg", "\xff\xd8\xff")
		write(`application/xml; charset="UTF-8"`, `<EventNotificationAlert><eventType>AccessControllerEvent</eventType></EventNotificationAlert>`)
		assert.NoError(t, mw.Close())
	}))
	defer srv.Close()

	var types []string
	err := newTestClient(t, srv).WatchAlerts(context.Background(), func(doc *xmltree.Map) error {
		alert, ok := doc.Child("EventNotificationAlert")
		require.True(t, ok)
		et, _ := alert.Scalar("eventType")
		types = append(types, et)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"videoloss", "AccessControllerEvent"}, types)
}

func TestWatchAlertsHandlerErrorStops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
		for i := 0; i < 3; i++ {
			pw, _ := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/xml"}})
			fmt.Fprintf(pw, "<EventNotificationAlert><n>%d</n></EventNotificationAlert>", i)
		}
		_ = mw.Close()
	}))
	defer srv.Close()

	stop := errors.New("stop")
	var calls int
	err := newTestClient(t, srv).WatchAlerts(context.Background(), func(*xmltree.Map) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
