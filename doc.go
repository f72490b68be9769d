/*
Package wizard manages the state of the WellCome event-creation wizard, the
four screens a host walks through to publish a meal event.

Store

A Store holds one Session. Every mutation replaces the whole session with an
updated copy, so a Session returned by Data is never modified afterwards.

	store, err := wizard.NewStore(&wizard.SimulatedSubmitter{Delay: time.Second})

	err = store.SetEventType("Almoço")
	err = store.ToggleCuisineType("Italiana")
	err = store.AddDish(wizard.Dish{ID: "d1", Name: "Lasanha"})
	err = store.UpdateDish("d1", wizard.DishPatch{Description: wizard.String("Bolonhesa")})

Selections are checked against a catalog.Catalog. Unknown labels fail with
ErrNotInCatalog and the session is left unchanged.

Flow

A Flow drives the store through the steps and checks each one before moving
forward.

	flow, err := wizard.NewFlow(store)

	if err := flow.Next(); err != nil {
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			fmt.Println(verr.Message)
		}
	}

Submit is only allowed from the last step. A failed submission leaves the
session as it was so it can be retried; retries reuse the submission id.

	eventID, err := flow.Submit(ctx)

Event store

Submitted events can be persisted to a NATS JetStream stream.

	m, err := wizard.NewEventStoreManager(nc)
	es, err := m.EnsureEventStore(&wizard.EventStoreConfig{Name: "events"})

	reg, err := wizard.NewRecordTypes("json")
	sub := wizard.NewEventStoreSubmitter(es, reg, "events")

The same stream feeds the listings guests browse.

	feed := wizard.NewFeed(reg)
	err = feed.Refresh(ctx, es, "events.*")
	upcoming := feed.Upcoming(clock.Time)
*/
package wizard
