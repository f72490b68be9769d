package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wellcome-app/wizard/catalog"
	"github.com/wellcome-app/wizard/testutil"
)

var errBackend = errors.New("backend unavailable")

func newTestStore(t *testing.T, sub Submitter) *Store {
	t.Helper()
	if sub == nil {
		sub = &SimulatedSubmitter{}
	}
	s, err := NewStore(sub,
		ID(testutil.NewSeqGen("sub")),
		Clock(testutil.NewClock(time.Second)),
	)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewStore(t *testing.T) {
	is := testutil.NewIs(t)

	_, err := NewStore(nil)
	is.Err(err, ErrSubmitterRequired)

	_, err = NewStore(&SimulatedSubmitter{}, Catalog(&catalog.Catalog{}))
	is.Err(err, catalog.ErrInvalid)

	s, err := NewStore(&SimulatedSubmitter{})
	is.NoErr(err)
	is.Equal(s.Data(), NewSession())
	is.Equal(s.Revision(), uint64(0))
	is.True(!s.Finalized())
}

func TestStoreEventType(t *testing.T) {
	is := testutil.NewIs(t)
	s := newTestStore(t, nil)

	is.NoErr(s.SetEventType("Almoço"))
	is.Equal(s.Data().EventType, "Almoço")

	err := s.SetEventType("Churrasco na laje")
	is.Err(err, ErrNotInCatalog)
	is.Equal(s.Data().EventType, "Almoço")

	is.NoErr(s.SetEventType(""))
	is.Equal(s.Data().EventType, "")
}

func TestStoreToggleCuisineType(t *testing.T) {
	is := testutil.NewIs(t)
	s := newTestStore(t, nil)

	is.NoErr(s.ToggleCuisineType("Italiana"))
	is.NoErr(s.ToggleCuisineType("Japonesa"))
	is.Equal(s.Data().CuisineTypes, []string{"Italiana", "Japonesa"})

	// Toggling twice restores the set.
	before := s.Data().CuisineTypes
	is.NoErr(s.ToggleCuisineType("Mineira"))
	is.NoErr(s.ToggleCuisineType("Mineira"))
	is.Equal(s.Data().CuisineTypes, before)

	is.NoErr(s.ToggleCuisineType("Italiana"))
	is.Equal(s.Data().CuisineTypes, []string{"Japonesa"})

	err := s.ToggleCuisineType("Marciana")
	is.Err(err, ErrNotInCatalog)
	is.Equal(s.Data().CuisineTypes, []string{"Japonesa"})
}

func TestStoreDishes(t *testing.T) {
	is := testutil.NewIs(t)
	s := newTestStore(t, nil)

	is.NoErr(s.AddDish(Dish{ID: "1", Name: "Bruschetta"}))
	is.NoErr(s.AddDish(Dish{ID: "2", Name: "Lasanha"}))
	is.NoErr(s.AddDish(Dish{ID: "3", Name: "Tiramisu"}))

	// Add then remove is the identity.
	before := s.Data().Dishes
	is.NoErr(s.AddDish(Dish{ID: "4", Name: "Café"}))
	is.NoErr(s.RemoveDish("4"))
	is.Equal(s.Data().Dishes, before)

	// Removing keeps the order of the rest.
	is.NoErr(s.RemoveDish("2"))
	is.Equal(s.Data().Dishes, []Dish{
		{ID: "1", Name: "Bruschetta"},
		{ID: "3", Name: "Tiramisu"},
	})

	// Partial merge only touches the given field of the given dish.
	is.NoErr(s.UpdateDish("3", DishPatch{Description: String("Com mascarpone")}))
	is.Equal(s.Data().Dishes, []Dish{
		{ID: "1", Name: "Bruschetta"},
		{ID: "3", Name: "Tiramisu", Description: "Com mascarpone"},
	})

	rev := s.Revision()
	err := s.UpdateDish("9", DishPatch{Name: String("Fantasma")})
	is.Err(err, ErrDishNotFound)
	err = s.RemoveDish("9")
	is.Err(err, ErrDishNotFound)
	is.Equal(s.Revision(), rev)
	is.Equal(len(s.Data().Dishes), 2)

	d, ok := s.Data().Dish("1")
	is.True(ok)
	is.Equal(d.Name, "Bruschetta")
}

func TestStoreLocation(t *testing.T) {
	is := testutil.NewIs(t)
	s := newTestStore(t, nil)

	is.NoErr(s.UpdateLocation(LocationPatch{
		Address:    String("Rua Augusta, 100"),
		Facilities: []string{"Ar condicionado", "Ar condicionado", "Segurança privada"},
	}))
	is.Equal(s.Data().Location, LocationDetails{
		Address:    "Rua Augusta, 100",
		Facilities: []string{"Ar condicionado", "Segurança privada"},
	})

	// Untouched fields survive.
	is.NoErr(s.UpdateLocation(LocationPatch{Rules: []string{"Barulho moderado"}}))
	is.Equal(s.Data().Location.Address, "Rua Augusta, 100")
	is.Equal(s.Data().Location.Facilities, []string{"Ar condicionado", "Segurança privada"})

	err := s.UpdateLocation(LocationPatch{Facilities: []string{"Piscina"}})
	is.Err(err, ErrNotInCatalog)

	err = s.UpdateLocation(LocationPatch{Rules: []string{"Traje de gala"}})
	is.Err(err, ErrNotInCatalog)

	is.NoErr(s.ToggleFacility("Ar condicionado"))
	is.NoErr(s.ToggleRule("Não aceita animais"))
	is.Equal(s.Data().Location.Facilities, []string{"Segurança privada"})
	is.Equal(s.Data().Location.Rules, []string{"Barulho moderado", "Não aceita animais"})

	is.Err(s.ToggleFacility("Heliponto"), ErrNotInCatalog)
	is.Err(s.ToggleRule("Proibido rir"), ErrNotInCatalog)

	// An empty slice clears the set.
	is.NoErr(s.UpdateLocation(LocationPatch{Rules: []string{}}))
	is.Equal(len(s.Data().Location.Rules), 0)
}

func TestStoreDetailsAndFlags(t *testing.T) {
	is := testutil.NewIs(t)
	s := newTestStore(t, nil)

	local := time.FixedZone("BRT", -3*60*60)
	is.NoErr(s.UpdateDetails(DetailsPatch{
		PricePerGuest: String("89,90"),
		Date:          Time(time.Date(2025, 12, 20, 22, 30, 0, 0, local)),
	}))
	is.NoErr(s.UpdateDetails(DetailsPatch{MaxGuests: String("8")}))

	d := s.Data().Details
	is.Equal(d.PricePerGuest, "89,90")
	is.Equal(d.MaxGuests, "8")
	is.Equal(*d.Date, time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC))
	is.True(d.RegistrationDeadline == nil)

	is.NoErr(s.SetServedInSequence(true))
	is.NoErr(s.SetVeganOptions(true))
	is.NoErr(s.SetSubstitutions(true))
	is.NoErr(s.SetMenuAlterations(false))

	data := s.Data()
	is.True(data.IsServedInSequence)
	is.True(data.VeganOptions)
	is.True(data.Substitutions)
	is.True(!data.MenuAlterations)
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	is := testutil.NewIs(t)
	s := newTestStore(t, nil)

	is.NoErr(s.ToggleCuisineType("Italiana"))
	is.NoErr(s.AddDish(Dish{ID: "1", Name: "Risoto"}))
	is.NoErr(s.UpdateDetails(DetailsPatch{Date: Time(time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC))}))

	snap := s.Data()
	snap.CuisineTypes[0] = "Alterada"
	snap.Dishes[0].Name = "Alterado"
	*snap.Details.Date = time.Time{}

	data := s.Data()
	is.Equal(data.CuisineTypes, []string{"Italiana"})
	is.Equal(data.Dishes[0].Name, "Risoto")
	is.True(!data.Details.Date.IsZero())

	// A held snapshot does not observe later mutations.
	held := s.Data()
	is.NoErr(s.ToggleCuisineType("Japonesa"))
	is.Equal(held.CuisineTypes, []string{"Italiana"})
}

func TestStoreSubmit(t *testing.T) {
	is := testutil.NewIs(t)

	var got *Submission
	s := newTestStore(t, SubmitterFunc(func(ctx context.Context, sub *Submission) (string, error) {
		got = sub
		return "evt-1", nil
	}))

	is.NoErr(s.SetEventType("Jantar"))

	eventID, err := s.Submit(context.Background())
	is.NoErr(err)
	is.Equal(eventID, "evt-1")
	is.Equal(got.ID, "sub-1")
	is.Equal(got.Session.EventType, "Jantar")
	is.True(s.Finalized())
	is.Equal(s.EventID(), "evt-1")

	is.Err(s.SetEventType("Almoço"), ErrSessionFinalized)
	_, err = s.Submit(context.Background())
	is.Err(err, ErrSessionFinalized)

	is.NoErr(s.Reset())
	is.True(!s.Finalized())
	is.Equal(s.Data(), NewSession())
	is.NoErr(s.SetEventType("Almoço"))
}

func TestStoreSubmitFailure(t *testing.T) {
	is := testutil.NewIs(t)

	var ids []string
	fail := true
	s := newTestStore(t, SubmitterFunc(func(ctx context.Context, sub *Submission) (string, error) {
		ids = append(ids, sub.ID)
		if fail {
			return "", errBackend
		}
		return sub.ID, nil
	}))

	is.NoErr(s.SetEventType("Brunch"))
	is.NoErr(s.AddDish(Dish{ID: "1", Name: "Panqueca"}))
	before := s.Data()
	rev := s.Revision()

	_, err := s.Submit(context.Background())
	is.Err(err, errBackend)

	var serr *SubmissionError
	is.True(errors.As(err, &serr))
	is.Equal(serr.ID, "sub-1")

	// The session is untouched and still editable.
	is.Equal(s.Data(), before)
	is.Equal(s.Revision(), rev)
	is.True(!s.Finalized())

	// Retries reuse the submission id.
	_, err = s.Submit(context.Background())
	is.Err(err, errBackend)

	fail = false
	eventID, err := s.Submit(context.Background())
	is.NoErr(err)
	is.Equal(eventID, "sub-1")
	is.Equal(ids, []string{"sub-1", "sub-1", "sub-1"})
}

func TestStoreSubmitInProgress(t *testing.T) {
	is := testutil.NewIs(t)

	started := make(chan struct{})
	release := make(chan struct{})
	s := newTestStore(t, SubmitterFunc(func(ctx context.Context, sub *Submission) (string, error) {
		close(started)
		<-release
		return "evt-1", nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()

	<-started

	is.Err(s.SetEventType("Almoço"), ErrSubmissionInProgress)
	is.Err(s.AddDish(Dish{ID: "1"}), ErrSubmissionInProgress)
	is.Err(s.Reset(), ErrSubmissionInProgress)
	_, err := s.Submit(context.Background())
	is.Err(err, ErrSubmissionInProgress)

	close(release)
	is.NoErr(<-done)
	is.True(s.Finalized())
}

func TestStoreSubmitterPanic(t *testing.T) {
	is := testutil.NewIs(t)

	calls := 0
	s := newTestStore(t, SubmitterFunc(func(ctx context.Context, sub *Submission) (string, error) {
		calls++
		if calls == 1 {
			panic("submitter crashed")
		}
		return "evt-1", nil
	}))

	func() {
		defer func() {
			is.True(recover() != nil)
		}()
		s.Submit(context.Background())
	}()

	// The store is usable again.
	is.NoErr(s.SetEventType("Almoço"))
	is.NoErr(s.Reset())

	id, err := s.Submit(context.Background())
	is.NoErr(err)
	is.Equal(id, "evt-1")
	is.True(s.Finalized())
}

func TestStoreSubmitContextCanceled(t *testing.T) {
	is := testutil.NewIs(t)

	s := newTestStore(t, &SimulatedSubmitter{Delay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Submit(ctx)
	is.Err(err, context.Canceled)
	is.True(!s.Finalized())
}
