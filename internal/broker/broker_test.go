package broker

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hlhsinfo/hlhsinfo-backend/internal/keyring"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/portal"
	"github.com/hlhsinfo/hlhsinfo-backend/internal/token"
)

const fakeClassPage = `<table><tr><td>班級：三年甲班</td></tr></table>`

const fakeIdentityPage = `<table><tr id="authirty1">
<td>15</td><td>110123</td><td>王小明</td><td>男</td>
</tr></table>`

func loginPage(captcha bool) string {
	img := ""
	if captcha {
		img = `<img id="imgvcode" src="image/vcode.asp">`
	}
	return fmt.Sprintf(`<html>
<head><meta name="keywords" content="欣河資訊"></head>
<body><form>
<input name="__RequestVerificationToken" value="csrf-xyz">%s
</form></body></html>`, img)
}

// fakePortal is a configurable stand-in for the school portal.
type fakePortal struct {
	captcha       bool
	acceptLogin   bool
	expiredPages  bool
	scoreNotReady bool
	lastLogin     map[string]string
}

func (f *fakePortal) serve(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/online/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "ASPSESSIONID", Value: "s3cr3t", Path: "/"})
		fmt.Fprint(w, loginPage(f.captcha))
	})

	mux.HandleFunc("/online/login.asp", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		f.lastLogin = map[string]string{}
		for key := range r.PostForm {
			f.lastLogin[key] = r.PostForm.Get(key)
		}
		if f.acceptLogin {
			http.Redirect(w, r, "index.asp", http.StatusFound)
			return
		}
		fmt.Fprint(w, loginPage(f.captcha))
	})

	mux.HandleFunc("/online/image/vcode.asp", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("GIF89a-captcha"))
	})

	mux.HandleFunc("/online/student/selection_look_over_data.asp", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("look_over") == "right_top" {
			fmt.Fprint(w, fakeClassPage)
			return
		}
		fmt.Fprint(w, fakeIdentityPage)
	})

	mux.HandleFunc("/online/selection_student/fundamental.asp", func(w http.ResponseWriter, r *http.Request) {
		if f.expiredPages {
			fmt.Fprint(w, `<body><div>未登入</div></body>`)
			return
		}
		fmt.Fprint(w, `<body>
<img src="../utility/file1.asp?q=x&id=42">
<table class="le_04 padding2 spacing2">
<tr><td>姓名</td><td>王小明</td></tr>
</table></body>`)
	})

	mux.HandleFunc("/online/utility/file1.asp", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	mux.HandleFunc("/online/selection_student/student_subjects_number.asp", func(w http.ResponseWriter, r *http.Request) {
		if f.expiredPages {
			fmt.Fprint(w, `<body><div>未登入</div></body>`)
			return
		}
		// The list and the per-exam page share a path; the exam page is
		// requested with the exam's query parameters.
		if r.URL.Query().Get("thisyear") != "" {
			if f.scoreNotReady {
				fmt.Fprint(w, `<body><p>成績尚未開放</p></body>`)
				return
			}
			fmt.Fprint(w, `<body><table id="Table1">
<tr><td>科目</td><td>成績</td><td>GPA</td></tr>
<tr><td>國文</td><td><span>85</span></td><td><span>4.0</span></td></tr>
</table></body>`)
			return
		}
		fmt.Fprint(w, `<body><select id="ddlExamList">
<option value="">請選擇</option>
<option value="whole_term.asp">整學期</option>
<option value="x.asp?thisyear=112&thisterm=1&number=112101">第一次段考</option>
</select></body>`)
	})

	mux.HandleFunc("/online/selection_student/moralculture_ bonuspenalty.asp", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<body>
<table><tbody>
<tr><td>學年</td><td>嘉獎</td><td>次數</td></tr>
<tr><td>112</td><td>嘉獎</td><td>3</td></tr>
</tbody></table>
<table><tbody><tr class="dataRow">
<td>嘉獎</td><td>2024/03/01</td><td>2024/03/05</td><td>服務熱心</td><td>已執行</td><td>&nbsp;</td><td>112</td>
</tr></tbody></table></body>`)
	})

	mux.HandleFunc("/online/selection_student/absentation_skip_school.asp", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<body>
<table class="si_12 collapse padding2 spacing0">
<tr><td>事假</td><td>病假</td></tr>
<tr><td>1</td><td>2</td></tr>
<tr><td>事假</td><td>病假</td></tr>
<tr><td>0</td><td>1</td></tr>
</table>
<table class="padding2 spacing0">
<tr class="td_03 si_12 le_05 top center"><td>週</td><td>日期</td><td>節</td><td>1</td></tr>
<tr><td>一</td><td>09/02</td><td></td><td>病假</td></tr>
</table></body>`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestBroker(t *testing.T) (*Broker, *token.Codec) {
	t.Helper()
	keys, err := keyring.Obtain(t.TempDir())
	require.NoError(t, err)
	codec := token.NewCodec(keys, 5*time.Minute, time.Hour)
	return New(portal.NewClient(), codec), codec
}

func TestDiscover(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{}).serve(t)

	info, err := b.Discover(context.Background(), host)
	require.NoError(t, err)
	assert.False(t, info.NeedCaptcha)

	claims, err := codec.VerifyHandshake(info.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, host+"/online/", claims.Host)
	assert.Equal(t, "csrf-xyz", claims.SiteKey)
	assert.Equal(t, "ASPSESSIONID=s3cr3t", claims.Cookie)
	assert.False(t, claims.NeedCaptcha)
}

func TestDiscoverCaptchaRequired(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{captcha: true}).serve(t)

	info, err := b.Discover(context.Background(), host)
	require.NoError(t, err)
	assert.True(t, info.NeedCaptcha)

	claims, err := codec.VerifyHandshake(info.AuthToken)
	require.NoError(t, err)
	assert.True(t, claims.NeedCaptcha)
}

func TestDiscoverRejectsNonPortalHost(t *testing.T) {
	b, _ := newTestBroker(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "1"})
		fmt.Fprint(w, `<html><head><meta name="keywords" content="blog"></head></html>`)
	}))
	defer srv.Close()

	_, err := b.Discover(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrHostInvalid)
}

func TestDiscoverHostErrors(t *testing.T) {
	b, _ := newTestBroker(t)

	t.Run("bad url", func(t *testing.T) {
		_, err := b.Discover(context.Background(), "not a url")
		assert.ErrorIs(t, err, ErrHostInvalid)
	})

	t.Run("404", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		_, err := b.Discover(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrHostInvalid)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		_, err := b.Discover(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrUpstreamBadStatus)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()
		_, err := b.Discover(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrUpstreamUnreachable)
	})

	t.Run("no cookie offered", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, loginPage(false))
		}))
		defer srv.Close()
		_, err := b.Discover(context.Background(), srv.URL)
		assert.ErrorIs(t, err, ErrUpstreamUnreachable)
	})
}

func handshakeFor(t *testing.T, b *Broker, codec *token.Codec, host string) *token.HandshakeClaims {
	t.Helper()
	info, err := b.Discover(context.Background(), host)
	require.NoError(t, err)
	claims, err := codec.VerifyHandshake(info.AuthToken)
	require.NoError(t, err)
	return claims
}

func TestLogin(t *testing.T) {
	b, codec := newTestBroker(t)
	fake := &fakePortal{acceptLogin: true}
	host := fake.serve(t)
	hs := handshakeFor(t, b, codec, host)

	result, err := b.Login(context.Background(), hs, "student", "secret", "1234")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"__RequestVerificationToken": "csrf-xyz",
		"division":                   "senior",
		"Loginid":                    "student",
		"LoginPwd":                   "secret",
		"Uid":                        "",
		"vcode":                      "1234",
	}, fake.lastLogin)

	claims, err := codec.VerifySession(result.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, hs.Host, claims.Host)
	assert.Equal(t, hs.Cookie, claims.Cookie)
	assert.Equal(t, "王小明", claims.User.UserName)
	assert.Equal(t, "三年甲班", claims.User.ClassName)
	assert.Equal(t, "110123", claims.User.SchoolNumber)
}

func TestLoginRejected(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{acceptLogin: false}).serve(t)
	hs := handshakeFor(t, b, codec, host)

	_, err := b.Login(context.Background(), hs, "student", "wrong", "1234")
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestLoginProfileBindingFailure(t *testing.T) {
	b, codec := newTestBroker(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/online/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "1"})
		fmt.Fprint(w, loginPage(false))
	})
	mux.HandleFunc("/online/login.asp", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "index.asp", http.StatusFound)
	})
	mux.HandleFunc("/online/student/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	hs := handshakeFor(t, b, codec, srv.URL)
	_, err := b.Login(context.Background(), hs, "student", "secret", "")
	assert.ErrorIs(t, err, ErrLoginRejected)
}

func TestCaptcha(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{captcha: true}).serve(t)
	hs := handshakeFor(t, b, codec, host)

	data, err := b.Captcha(context.Background(), hs)
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a-captcha"), data)
}

func sessionFor(t *testing.T, b *Broker, codec *token.Codec, host string) *token.SessionClaims {
	t.Helper()
	hs := handshakeFor(t, b, codec, host)
	result, err := b.Login(context.Background(), hs, "student", "secret", "")
	require.NoError(t, err)
	claims, err := codec.VerifySession(result.AuthToken)
	require.NoError(t, err)
	return claims
}

func TestProfile(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{acceptLogin: true}).serve(t)
	sc := sessionFor(t, b, codec, host)

	profile, err := b.Profile(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []portal.ProfileField{{Name: "姓名", Value: "王小明"}}, profile.Data)
	assert.Contains(t, profile.ProfileImg, "data:image/png;base64,")
}

func TestProfileSessionExpiredUpstream(t *testing.T) {
	b, codec := newTestBroker(t)
	fake := &fakePortal{acceptLogin: true}
	host := fake.serve(t)
	sc := sessionFor(t, b, codec, host)

	fake.expiredPages = true
	_, err := b.Profile(context.Background(), sc)
	assert.ErrorIs(t, err, ErrSessionExpiredUpstream)
}

func TestAvailableScores(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{acceptLogin: true}).serve(t)
	sc := sessionFor(t, b, codec, host)

	scores, err := b.AvailableScores(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []portal.ScoreOption{
		{Name: "第一次段考", Year: 112, Term: 1, TestID: "112101", Times: 1, Type: 1},
	}, scores)
}

func TestScoreDetail(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{acceptLogin: true}).serve(t)
	sc := sessionFor(t, b, codec, host)

	detail, err := b.ScoreDetail(context.Background(), sc, ScoreQuery{
		Year: "112", Term: "1", TestID: "112101",
	})
	require.NoError(t, err)

	require.Len(t, detail.Data, 1)
	assert.Equal(t, portal.ScoreValue{Name: "國文", Score: 85, GPA: 4.0}, detail.Data[0])
}

func TestScoreDetailNotReady(t *testing.T) {
	b, codec := newTestBroker(t)
	fake := &fakePortal{acceptLogin: true, scoreNotReady: true}
	host := fake.serve(t)
	sc := sessionFor(t, b, codec, host)

	_, err := b.ScoreDetail(context.Background(), sc, ScoreQuery{
		Year: "112", Term: "1", TestID: "112101",
	})
	assert.ErrorIs(t, err, ErrScoreNotReady)
}

func TestConduct(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{acceptLogin: true}).serve(t)
	sc := sessionFor(t, b, codec, host)

	record, err := b.Conduct(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, []portal.ConductStatus{{Type: "嘉獎", Times: 3}}, record.Status)
	require.Len(t, record.Detail, 1)
	assert.Equal(t, "服務熱心", record.Detail[0].Reason)
}

func TestAttendance(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{acceptLogin: true}).serve(t)
	sc := sessionFor(t, b, codec, host)

	att, err := b.Attendance(context.Background(), sc)
	require.NoError(t, err)

	require.Len(t, att.Total.TermUp, 2)
	assert.Equal(t, portal.AttendanceStatus{Name: "病假", Value: 2}, att.Total.TermUp[1])
	require.Len(t, att.Record, 1)
	assert.Equal(t, "09/02", att.Record[0].Date)
}

// A session credential pins its own portal; no operation reaches any
// other host, whatever the caller supplies alongside it.
func TestSessionOperationsStayOnCredentialHost(t *testing.T) {
	b, codec := newTestBroker(t)
	host := (&fakePortal{acceptLogin: true}).serve(t)
	sc := sessionFor(t, b, codec, host)

	other := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to foreign host: %s", r.URL.Path)
	}))
	defer other.Close()

	_, err := b.Profile(context.Background(), sc)
	require.NoError(t, err)
	_, err = b.AvailableScores(context.Background(), sc)
	require.NoError(t, err)
	_, err = b.Conduct(context.Background(), sc)
	require.NoError(t, err)
	_, err = b.Attendance(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, host+"/online/", sc.Host)
}

func TestAvailableScoresSessionExpiredUpstream(t *testing.T) {
	b, codec := newTestBroker(t)
	fake := &fakePortal{acceptLogin: true}
	host := fake.serve(t)
	sc := sessionFor(t, b, codec, host)

	fake.expiredPages = true
	_, err := b.AvailableScores(context.Background(), sc)
	assert.ErrorIs(t, err, ErrSessionExpiredUpstream)
}
