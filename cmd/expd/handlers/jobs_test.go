package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	handlers "github.com/expfab/expfab/cmd/expd/handlers"
	httptestutil "github.com/expfab/expfab/internal/testutils/http"
	apiexp "github.com/expfab/expfab/pkg/api/types/experiments"
	"github.com/expfab/expfab/pkg/domain"
	mockevent "github.com/expfab/expfab/pkg/domain/event/db/mock"
	mockdb "github.com/expfab/expfab/pkg/domain/experiment/db/mock"
	mockjob "github.com/expfab/expfab/pkg/domain/job/db/mock"
	"github.com/expfab/expfab/pkg/utils/cmp"
)

func TestFindJobHandler(t *testing.T) {

	stored := domain.Experiment{
		ExperimentBody: domain.ExperimentBody{
			Id: "exp-1", Sequence: 1,
			Specification: map[string]any{"version": 1},
			LastStatus:    domain.Running,
		},
		Project: domain.ProjectBody{
			Id: "proj-1", Name: "mnist",
			User: domain.UserBody{Id: "user-1", Name: "alice"},
		},
		User: domain.UserBody{Id: "user-1", Name: "alice"},
	}

	t.Run("it returns OK with jobs in repository order", func(t *testing.T) {
		jobs := map[string]domain.ExperimentJob{
			"job-1": {
				ExperimentJobBody: domain.ExperimentJobBody{
					Id: "job-1", Sequence: 1, Role: "master",
					Definition: map[string]any{"replicas": 1.0},
					LastStatus: domain.Running,
				},
				ExperimentId: "exp-1",
			},
			"job-2": {
				ExperimentJobBody: domain.ExperimentJobBody{
					Id: "job-2", Sequence: 2, Role: "worker",
					LastStatus: domain.Scheduled,
				},
				ExperimentId: "exp-1",
			},
		}

		mockExperiment := mockdb.NewExperimentInterface()
		mockExperiment.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Experiment, error) {
			return map[string]domain.Experiment{"exp-1": stored}, nil
		}
		mockJob := mockjob.NewJobInterface()
		mockJob.Impl.FindByExperiment = func(ctx context.Context, id string) ([]string, error) {
			return []string{"job-1", "job-2"}, nil
		}
		mockJob.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.ExperimentJob, error) {
			return jobs, nil
		}
		mockEvent := mockevent.NewEventInterface()
		mockEvent.Impl.Append = func(ctx context.Context, ev domain.Event) error { return nil }

		e := echo.New()
		c, respRec := httptestutil.Get(
			e, "/api/experiments/exp-1/jobs",
			httptestutil.WithHeader(handlers.HeaderUserId, "user-9"),
		)
		c.SetParamNames("experimentId")
		c.SetParamValues("exp-1")

		testee := handlers.FindJobHandler(mockExperiment, mockJob, testRegistry(mockEvent))
		if err := testee(c); err != nil {
			t.Fatalf("response is not illegal. error = %v", err)
		}

		if respRec.Result().StatusCode != http.StatusOK {
			t.Errorf("status code %d != %d", respRec.Result().StatusCode, http.StatusOK)
		}

		expectedFinds := []struct{ ExperimentId string }{{ExperimentId: "exp-1"}}
		if !cmp.SliceEq(
			[]struct{ ExperimentId string }(mockJob.Calls.FindByExperiment), expectedFinds,
		) {
			t.Errorf(
				"unmatch: params for JobInterface.FindByExperiment:\n- actual:\n%+v\n- expected:\n%+v",
				mockJob.Calls.FindByExperiment, expectedFinds,
			)
		}

		expectedEvents := []recordedEvent{
			{Type: domain.ExperimentJobsViewed, SubjectId: "exp-1"},
		}
		if !cmp.SliceEqWith(mockEvent.Calls.Append, expectedEvents, eventMatches) {
			t.Errorf(
				"unmatch: recorded events:\n- actual:\n%+v\n- expected:\n%+v",
				mockEvent.Calls.Append, expectedEvents,
			)
		}

		actual := []apiexp.JobDetail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not json: error = %v", err)
		}
		if len(actual) != 2 || actual[0].JobId != "job-1" || actual[1].JobId != "job-2" {
			t.Fatalf("jobs do not come in order: %+v", actual)
		}
		if actual[0].Role != "master" || actual[0].Status != "running" {
			t.Errorf("unmatch: first job: %+v", actual[0])
		}
		if !reflect.DeepEqual(actual[0].Definition, map[string]any{"replicas": 1.0}) {
			t.Errorf("unmatch: first job definition: %+v", actual[0].Definition)
		}
	})

	t.Run("it returns error response", func(t *testing.T) {
		type when struct {
			experiments map[string]domain.Experiment
			errorOnGet  error
			errorOnFind error
		}
		type then struct {
			statusCode int
		}

		for name, testcase := range map[string]struct {
			when
			then
		}{
			"(Not Found) when the experiment is not there": {
				when{experiments: map[string]domain.Experiment{}},
				then{statusCode: http.StatusNotFound},
			},
			"(Internal Server Error) when ExperimentInterface.Get cause error": {
				when{errorOnGet: errors.New("dummy error")},
				then{statusCode: http.StatusInternalServerError},
			},
			"(Internal Server Error) when JobInterface.FindByExperiment cause error": {
				when{
					experiments: map[string]domain.Experiment{"exp-1": stored},
					errorOnFind: errors.New("dummy error"),
				},
				then{statusCode: http.StatusInternalServerError},
			},
		} {
			t.Run(name, func(t *testing.T) {
				mockExperiment := mockdb.NewExperimentInterface()
				mockExperiment.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.Experiment, error) {
					return testcase.when.experiments, testcase.when.errorOnGet
				}
				mockJob := mockjob.NewJobInterface()
				mockJob.Impl.FindByExperiment = func(ctx context.Context, id string) ([]string, error) {
					return nil, testcase.when.errorOnFind
				}

				e := echo.New()
				c, _ := httptestutil.Get(e, "/api/experiments/exp-1/jobs")
				c.SetParamNames("experimentId")
				c.SetParamValues("exp-1")

				testee := handlers.FindJobHandler(
					mockExperiment, mockJob, testRegistry(mockevent.NewEventInterface()),
				)

				err := testee(c)
				if err == nil {
					t.Fatalf("no error but it is not expected result")
				}
				var echoErr *echo.HTTPError
				if !errors.As(err, &echoErr) {
					t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
				}
				if echoErr.Code != testcase.then.statusCode {
					t.Fatalf("unmatch error code:%d, expected:%d", echoErr.Code, testcase.then.statusCode)
				}
			})
		}
	})
}

func TestCreateJobHandler(t *testing.T) {

	storedJob := domain.ExperimentJob{
		ExperimentJobBody: domain.ExperimentJobBody{
			Id: "job-new", Sequence: 3, Role: "worker",
			Definition: map[string]any{"replicas": 2.0},
			LastStatus: domain.Created,
		},
		ExperimentId: "exp-1",
	}

	t.Run("it creates a job and returns Created", func(t *testing.T) {
		mockJob := mockjob.NewJobInterface()
		mockJob.Impl.New = func(ctx context.Context, nj domain.NewExperimentJob) (string, error) {
			return "job-new", nil
		}
		mockJob.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.ExperimentJob, error) {
			return map[string]domain.ExperimentJob{"job-new": storedJob}, nil
		}

		e := echo.New()
		c, respRec := httptestutil.Post(
			e, "/api/experiments/exp-1/jobs",
			strings.NewReader(`{"role": "worker", "definition": {"replicas": 2}}`),
			httptestutil.ContentType("application/json"),
		)
		c.SetParamNames("experimentId")
		c.SetParamValues("exp-1")

		testee := handlers.CreateJobHandler(mockJob)
		if err := testee(c); err != nil {
			t.Fatalf("response is not illegal. error = %v", err)
		}

		if respRec.Result().StatusCode != http.StatusCreated {
			t.Errorf("status code %d != %d", respRec.Result().StatusCode, http.StatusCreated)
		}

		if mockJob.Calls.New.Times() != 1 {
			t.Fatalf("New should be called once: %+v", mockJob.Calls.New)
		}
		expectedNew := domain.NewExperimentJob{
			ExperimentId: "exp-1", Role: "worker",
			Definition: map[string]any{"replicas": 2.0},
		}
		if actual := mockJob.Calls.New[0]; !reflect.DeepEqual(actual, expectedNew) {
			t.Errorf(
				"unmatch: params for JobInterface.New:\n- actual:\n%+v\n- expected:\n%+v",
				actual, expectedNew,
			)
		}

		actual := apiexp.JobDetail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not json: error = %v", err)
		}
		if actual.JobId != "job-new" || actual.Role != "worker" || actual.Status != "created" {
			t.Errorf("unmatch: created job: %+v", actual)
		}
	})

	t.Run("it returns error response", func(t *testing.T) {
		type when struct {
			body       string
			errorOnNew error
		}
		type then struct {
			statusCode int
		}

		for name, testcase := range map[string]struct {
			when
			then
		}{
			"(Bad Request) when role is not passed": {
				when{body: `{"definition": {"replicas": 2}}`},
				then{statusCode: http.StatusBadRequest},
			},
			"(Not Found) when the experiment is not there": {
				when{body: `{"role": "worker"}`, errorOnNew: domain.ErrMissing},
				then{statusCode: http.StatusNotFound},
			},
			"(Internal Server Error) when JobInterface.New cause error": {
				when{body: `{"role": "worker"}`, errorOnNew: errors.New("dummy error")},
				then{statusCode: http.StatusInternalServerError},
			},
		} {
			t.Run(name, func(t *testing.T) {
				mockJob := mockjob.NewJobInterface()
				mockJob.Impl.New = func(ctx context.Context, nj domain.NewExperimentJob) (string, error) {
					return "", testcase.when.errorOnNew
				}

				e := echo.New()
				c, _ := httptestutil.Post(
					e, "/api/experiments/exp-1/jobs",
					strings.NewReader(testcase.when.body),
					httptestutil.ContentType("application/json"),
				)
				c.SetParamNames("experimentId")
				c.SetParamValues("exp-1")

				testee := handlers.CreateJobHandler(mockJob)

				err := testee(c)
				if err == nil {
					t.Fatalf("no error but it is not expected result")
				}
				var echoErr *echo.HTTPError
				if !errors.As(err, &echoErr) {
					t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
				}
				if echoErr.Code != testcase.then.statusCode {
					t.Fatalf("unmatch error code:%d, expected:%d", echoErr.Code, testcase.then.statusCode)
				}
			})
		}
	})
}

func TestGetJobHandler(t *testing.T) {

	storedJob := domain.ExperimentJob{
		ExperimentJobBody: domain.ExperimentJobBody{
			Id: "job-1", Sequence: 1, Role: "worker",
			LastStatus: domain.Running,
		},
		ExperimentId: "exp-1",
	}

	t.Run("it returns OK with the job and records a viewed event", func(t *testing.T) {
		mockJob := mockjob.NewJobInterface()
		mockJob.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.ExperimentJob, error) {
			return map[string]domain.ExperimentJob{"job-1": storedJob}, nil
		}
		mockEvent := mockevent.NewEventInterface()
		mockEvent.Impl.Append = func(ctx context.Context, ev domain.Event) error { return nil }

		e := echo.New()
		c, respRec := httptestutil.Get(
			e, "/api/jobs/job-1",
			httptestutil.WithHeader(handlers.HeaderUserId, "user-9"),
		)
		c.SetParamNames("jobId")
		c.SetParamValues("job-1")

		testee := handlers.GetJobHandler(mockJob, testRegistry(mockEvent))
		if err := testee(c); err != nil {
			t.Fatalf("response is not illegal. error = %v", err)
		}

		if respRec.Result().StatusCode != http.StatusOK {
			t.Errorf("status code %d != %d", respRec.Result().StatusCode, http.StatusOK)
		}

		expectedEvents := []recordedEvent{
			{Type: domain.ExperimentJobViewed, SubjectId: "job-1"},
		}
		if !cmp.SliceEqWith(mockEvent.Calls.Append, expectedEvents, eventMatches) {
			t.Errorf(
				"unmatch: recorded events:\n- actual:\n%+v\n- expected:\n%+v",
				mockEvent.Calls.Append, expectedEvents,
			)
		}

		actual := apiexp.JobDetail{}
		if err := json.Unmarshal(respRec.Body.Bytes(), &actual); err != nil {
			t.Fatalf("response is not json: error = %v", err)
		}
		if actual.JobId != "job-1" || actual.ExperimentId != "exp-1" || actual.Status != "running" {
			t.Errorf("unmatch: job: %+v", actual)
		}
	})

	t.Run("it returns Not Found when the job is not there", func(t *testing.T) {
		mockJob := mockjob.NewJobInterface()
		mockJob.Impl.Get = func(ctx context.Context, ids []string) (map[string]domain.ExperimentJob, error) {
			return map[string]domain.ExperimentJob{}, nil
		}

		e := echo.New()
		c, _ := httptestutil.Get(e, "/api/jobs/job-x")
		c.SetParamNames("jobId")
		c.SetParamValues("job-x")

		testee := handlers.GetJobHandler(mockJob, testRegistry(mockevent.NewEventInterface()))

		err := testee(c)
		if err == nil {
			t.Fatalf("no error but it is not expected result")
		}
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusNotFound {
			t.Fatalf("unmatch error code:%d, expected:%d", echoErr.Code, http.StatusNotFound)
		}
	})
}
